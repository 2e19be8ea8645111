package schedule_resolver_service

import (
	"context"
	"strings"

	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

type doctorResolver struct {
	entities out.EntityStorePort
	builder  *queryBuilder
	fetcher  *availabilityFetcher
	cfg      *config.Config
	logger   out.LoggerPort
}

func newDoctorResolver(entities out.EntityStorePort, builder *queryBuilder, fetcher *availabilityFetcher, cfg *config.Config, logger out.LoggerPort) *doctorResolver {
	return &doctorResolver{
		entities: entities,
		builder:  builder,
		fetcher:  fetcher,
		cfg:      cfg,
		logger:   logger.WithModule("DoctorResolver"),
	}
}

// Resolve loads the doctor entities relevant to the request. With a known
// organization unit this is a single filtered lookup; otherwise the raw codes
// found in the availability response are resolved, falling back to a bounded
// scheduling probe when no codes were supplied.
func (r *doctorResolver) Resolve(ctx context.Context, req domain.ResolveRequest, rawCodes []string) ([]domain.ReferenceEntity, error) {
	if req.Filter.OrganizationUnit != nil {
		doctors, err := r.entities.GetActiveEntities(ctx, domain.EntityKindDoctor, map[string]string{
			"organizationUnit": req.Filter.OrganizationUnit.Code,
		})
		if err != nil {
			return nil, err
		}
		r.logger.Debug("doctors.resolve.direct", out.LogFields{
			"unit":  req.Filter.OrganizationUnit.Code,
			"count": len(doctors),
		})
		return doctors, nil
	}

	if len(rawCodes) == 0 {
		var err error
		rawCodes, err = r.probeDoctorCodes(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	if len(rawCodes) == 0 {
		return nil, nil
	}

	doctors, err := r.entities.GetValidEntitiesByCode(ctx, domain.EntityKindDoctor, rawCodes)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("doctors.resolve.derived", out.LogFields{
		"rawCodes": len(rawCodes),
		"resolved": len(doctors),
	})

	return doctors, nil
}

// probeDoctorCodes discovers which doctor codes actually have open slots by
// issuing a bounded availability query.
func (r *doctorResolver) probeDoctorCodes(ctx context.Context, req domain.ResolveRequest) ([]string, error) {
	probe := req
	probe.UntilDay = req.FromDay + r.cfg.Integration.ProbeWindowDays
	probe.Limit = r.cfg.Integration.ProbeLimit

	queries, err := r.builder.BuildQueries(ctx, probe, probe.FromDay)
	if err != nil {
		return nil, err
	}

	fragments, err := r.fetcher.Fetch(ctx, queries)
	if err != nil {
		return nil, err
	}

	return collectDoctorCodes(req.Filter.AppointmentType, fragments), nil
}

// collectDoctorCodes gathers the distinct raw doctor codes of every slot in
// the fragments, honoring the per-kind doctor-identity field.
func collectDoctorCodes(appointmentType *domain.ReferenceEntity, fragments []domain.UnitFragment) []string {
	seen := make(map[string]struct{})
	codes := make([]string, 0)

	add := func(code string) {
		if code == "" {
			return
		}
		if _, exists := seen[code]; exists {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	for _, fragment := range fragments {
		for _, resource := range fragment.Resources {
			for _, day := range resource.Days {
				for _, t := range day.Times {
					add(slotDoctorCode(appointmentType, resource, t))
				}
			}
		}
	}

	return codes
}

// GroupByLicense groups doctor records representing the same physical doctor.
// Grouping is keyed by license number; doctors without one pass through
// ungrouped. Re-grouping an already-grouped set is a no-op.
func GroupByLicense(doctors []domain.ReferenceEntity) []domain.ReferenceEntity {
	grouped := make([]domain.ReferenceEntity, 0, len(doctors))
	byLicense := make(map[string]int)

	for _, doctor := range doctors {
		license := doctor.Params.LicenseNumber
		if license == "" {
			grouped = append(grouped, doctor)
			continue
		}

		if pos, seen := byLicense[license]; seen {
			grouped[pos].Handle = mergeHandles(grouped[pos].Handle, doctor)
			continue
		}

		if doctor.Handle == "" {
			doctor.Handle = doctor.Code
		}
		byLicense[license] = len(grouped)
		grouped = append(grouped, doctor)
	}

	return grouped
}

// mergeHandles unions the member codes of a group and a sibling record,
// preserving first-seen order so regrouping stays idempotent.
func mergeHandles(handle string, doctor domain.ReferenceEntity) string {
	members := strings.Split(handle, domain.DoctorHandleDelimiter)
	present := make(map[string]struct{}, len(members))
	for _, member := range members {
		present[member] = struct{}{}
	}

	siblings := []string{doctor.Code}
	if doctor.Handle != "" {
		siblings = strings.Split(doctor.Handle, domain.DoctorHandleDelimiter)
	}
	for _, sibling := range siblings {
		if _, exists := present[sibling]; exists {
			continue
		}
		present[sibling] = struct{}{}
		members = append(members, sibling)
	}

	return strings.Join(members, domain.DoctorHandleDelimiter)
}

// MatchesDoctor reports whether a slot's raw doctor code belongs to the filter
// doctor, either directly or via the composite handle.
func MatchesDoctor(doctor *domain.ReferenceEntity, rawCode string) bool {
	if doctor == nil {
		return true
	}
	if rawCode == doctor.Code {
		return true
	}
	if doctor.Handle == "" {
		return false
	}
	for _, member := range strings.Split(doctor.Handle, domain.DoctorHandleDelimiter) {
		if member == rawCode {
			return true
		}
	}
	return false
}

// indexDoctors maps every member code of every (grouped) doctor to its entity,
// so slot filtering resolves raw codes in one lookup.
func indexDoctors(doctors []domain.ReferenceEntity) map[string]*domain.ReferenceEntity {
	index := make(map[string]*domain.ReferenceEntity)
	for i := range doctors {
		doctor := &doctors[i]
		index[doctor.Code] = doctor
		if doctor.Handle == "" {
			continue
		}
		for _, member := range strings.Split(doctor.Handle, domain.DoctorHandleDelimiter) {
			index[member] = doctor
		}
	}
	return index
}
