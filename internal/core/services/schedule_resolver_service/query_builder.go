package schedule_resolver_service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

// The upstream returns voluminous per-day data and degrades on wide windows,
// so requested windows are split into chunks of at most this many days.
const availabilityChunkDays = 7

type queryBuilder struct {
	entities out.EntityStorePort
	cache    out.CachePort
	cfg      *config.Config
	logger   out.LoggerPort
}

func newQueryBuilder(entities out.EntityStorePort, cache out.CachePort, cfg *config.Config, logger out.LoggerPort) *queryBuilder {
	return &queryBuilder{
		entities: entities,
		cache:    cache,
		cfg:      cfg,
		logger:   logger.WithModule("AvailabilityQueryBuilder"),
	}
}

// BuildQueries turns the filter plus the (possibly already raised) fromDay
// into one upstream query per 7-day chunk. An empty organization-unit list is
// a valid payload, the fetcher yields zero slots for it.
func (b *queryBuilder) BuildQueries(ctx context.Context, req domain.ResolveRequest, fromDay int) ([]domain.AvailabilityQuery, error) {
	startTime, endTime := req.Period.Window()

	base := domain.AvailabilityQuery{
		OrganizationUnits: b.organizationUnitCodes(ctx, req.Filter),
		StartTime:         startTime,
		EndTime:           endTime,
		Limit:             req.Limit,
	}
	if req.Filter.Doctor != nil {
		base.DoctorCode = req.Filter.Doctor.Code
	}
	if req.Filter.Insurance != nil {
		base.InsuranceCode = req.Filter.Insurance.Code
	}
	if req.Filter.InsurancePlan != nil {
		base.InsurancePlanCode = req.Filter.InsurancePlan.Code
	}
	if req.Filter.Speciality != nil {
		base.SpecialityCode = req.Filter.Speciality.Code
	}
	if req.Filter.Procedure != nil {
		base.ProcedureCode = req.Filter.Procedure.Code
	}
	if req.Filter.AppointmentType != nil {
		base.AppointmentTypeCode = req.Filter.AppointmentType.Code
	}
	// Age-based upstream filters only apply when the caller sent a birth date
	if req.Patient != nil {
		base.PatientAge = req.Patient.Age(time.Now())
		base.PatientSex = req.Patient.Sex
	}

	spanDays := req.UntilDay - fromDay
	if spanDays < 1 {
		spanDays = 1
	}

	queries := make([]domain.AvailabilityQuery, 0, (spanDays+availabilityChunkDays-1)/availabilityChunkDays)
	for offset := 0; offset < spanDays; offset += availabilityChunkDays {
		chunk := base
		chunk.FromDay = fromDay + offset
		chunk.SpanDays = availabilityChunkDays
		if remaining := spanDays - offset; remaining < availabilityChunkDays {
			chunk.SpanDays = remaining
		}
		queries = append(queries, chunk)
	}

	b.logger.Debug("builder.queries.built", out.LogFields{
		"fromDay":  fromDay,
		"spanDays": spanDays,
		"chunks":   len(queries),
		"units":    len(base.OrganizationUnits),
	})

	return queries, nil
}

// organizationUnitCodes resolves the units to search: the explicit filter
// value, else every active unit of the integration. Resolution trouble yields
// an empty list rather than an error, partial availability is preferable.
func (b *queryBuilder) organizationUnitCodes(ctx context.Context, filter domain.CorrelationFilter) []string {
	if filter.OrganizationUnit != nil {
		return []string{filter.OrganizationUnit.Code}
	}

	units := b.activeUnits(ctx)
	codes := make([]string, 0, len(units))
	for _, unit := range units {
		codes = append(codes, unit.Code)
	}
	return codes
}

// UnitEntities returns the searched units keyed by code, for slot enrichment.
func (b *queryBuilder) UnitEntities(ctx context.Context, filter domain.CorrelationFilter) map[string]*domain.ReferenceEntity {
	index := make(map[string]*domain.ReferenceEntity)
	if filter.OrganizationUnit != nil {
		index[filter.OrganizationUnit.Code] = filter.OrganizationUnit
		return index
	}

	units := b.activeUnits(ctx)
	for i := range units {
		index[units[i].Code] = &units[i]
	}
	return index
}

// activeUnits is a fetch-through over the unit cache.
func (b *queryBuilder) activeUnits(ctx context.Context) []domain.ReferenceEntity {
	key := domain.CacheKey{
		Integration: b.cfg.Integration.Code,
		Kind:        domain.CacheKindOrganizationUnits,
		Ref:         "active",
	}

	if b.cache != nil {
		if value, exists := b.cache.Get(ctx, key); exists {
			var units []domain.ReferenceEntity
			if err := json.Unmarshal(value, &units); err == nil {
				return units
			}
			b.cache.Delete(ctx, key)
		}
	}

	units, err := b.entities.GetActiveEntities(ctx, domain.EntityKindOrganizationUnit, nil)
	if err != nil {
		b.logger.Warn("builder.units.fetch_failed", out.LogFields{
			"error": err.Error(),
		})
		return nil
	}

	if b.cache != nil && len(units) > 0 {
		if value, err := json.Marshal(units); err == nil {
			b.cache.Set(ctx, key, value, b.cfg.UnitsTTL())
		}
	}

	return units
}
