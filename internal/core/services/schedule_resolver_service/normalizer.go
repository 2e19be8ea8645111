package schedule_resolver_service

import (
	"strings"
	"time"

	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
	"github.com/suchimauz/clinic-availability-resolver/internal/utils"
)

// This upstream has no distinct slot identifier, the formatted slot time is
// the appointment code used to book it later.
const appointmentCodeLayout = "20060102150405"

type slotNormalizer struct {
	cfg    *config.Config
	logger out.LoggerPort
}

func newSlotNormalizer(cfg *config.Config, logger out.LoggerPort) *slotNormalizer {
	return &slotNormalizer{
		cfg:    cfg,
		logger: logger.WithModule("SlotNormalizer"),
	}
}

// slotDoctorCode picks the slot's doctor identity: exam-type schedules carry
// it on the scheduled resource, consultations on the time entry itself.
func slotDoctorCode(appointmentType *domain.ReferenceEntity, resource domain.AvailabilityResource, t domain.AvailabilityTime) string {
	if appointmentType != nil && appointmentType.Params.ScheduleKind == domain.ScheduleKindExam {
		return resource.ResponsibleDoctorCode
	}
	if t.ResponsibleDoctorCode != "" {
		return t.ResponsibleDoctorCode
	}
	return resource.ResponsibleDoctorCode
}

func slotOpen(status string) bool {
	switch status {
	case "", "open", "free":
		return true
	default:
		return false
	}
}

// Normalize walks every unit → resource → day → time entry of the merged
// response and keeps only slots whose doctor identity resolves to a known,
// valid doctor (directly or via the composite handle). When the caller pinned
// a doctor, slots of other doctors are dropped; when the doctor-scoped gap
// map is active, slots inside a doctor's minimum gap are dropped too.
func (n *slotNormalizer) Normalize(
	fragments []domain.UnitFragment,
	doctors map[string]*domain.ReferenceEntity,
	req domain.ResolveRequest,
	doctorGaps map[string]int,
) []domain.RawAppointment {
	raw := make([]domain.RawAppointment, 0)
	now := time.Now()
	dropped := 0

	for _, fragment := range fragments {
		for _, resource := range fragment.Resources {
			for _, day := range resource.Days {
				for _, t := range day.Times {
					if !slotOpen(t.Status) {
						continue
					}

					code := slotDoctorCode(req.Filter.AppointmentType, resource, t)
					doctor, known := doctors[code]
					if !known {
						dropped++
						continue
					}
					if req.Filter.Doctor != nil && !MatchesDoctor(req.Filter.Doctor, code) {
						dropped++
						continue
					}

					// Doctor-scoped inter-appointment filtering, pass 2:
					// doctors absent from the map pass through unfiltered
					if doctorGaps != nil && req.Filter.Doctor == nil {
						if gap, restricted := groupGap(doctorGaps, code, doctor); restricted &&
							utils.DaysBetween(now, t.Time.Date) < gap {
							dropped++
							continue
						}
					}

					raw = append(raw, buildRawAppointment(fragment, resource, t, code, doctor, req.Filter))
				}
			}
		}
	}

	n.logger.Debug("normalizer.slots.normalized", out.LogFields{
		"kept":    len(raw),
		"dropped": dropped,
	})

	return raw
}

// groupGap resolves the per-doctor restriction for a grouped identity. The
// gap map is keyed by the history's raw doctor codes, which may be any member
// of the group, so the slot's raw code, the canonical code and every handle
// member are checked. When several members carry a restriction the strictest
// one binds the whole group.
func groupGap(doctorGaps map[string]int, rawCode string, doctor *domain.ReferenceEntity) (int, bool) {
	codes := []string{rawCode, doctor.Code}
	if doctor.Handle != "" {
		codes = append(codes, strings.Split(doctor.Handle, domain.DoctorHandleDelimiter)...)
	}

	best := 0
	restricted := false
	for _, code := range codes {
		if gap, known := doctorGaps[code]; known && gap > best {
			best = gap
			restricted = true
		}
	}
	return best, restricted
}

func buildRawAppointment(
	fragment domain.UnitFragment,
	resource domain.AvailabilityResource,
	t domain.AvailabilityTime,
	rawDoctorCode string,
	doctor *domain.ReferenceEntity,
	filter domain.CorrelationFilter,
) domain.RawAppointment {
	appointment := domain.RawAppointment{
		Code:            t.Time.Date.Format(appointmentCodeLayout),
		Date:            t.Time.Date,
		DurationMinutes: t.DurationMinutes,
		Status:          domain.AppointmentStatusOpen,
		DoctorCode:      doctor.Code,
		DefaultDoctor: domain.DefaultRecord{
			Code: doctor.Code,
			Name: doctor.Name,
		},
		DefaultOrganizationUnit: domain.DefaultRecord{
			Code: fragment.UnitCode,
			Name: fragment.UnitName,
		},
		Raw: domain.RawSlotData{
			RawDoctorCode:   rawDoctorCode,
			RawResourceCode: resource.Code,
			UnitCode:        fragment.UnitCode,
		},
	}

	if appointment.DefaultDoctor.Name == "" {
		appointment.DefaultDoctor.Name = resource.Description
	}
	if filter.Procedure != nil {
		appointment.DefaultProcedure = domain.DefaultRecord{Code: filter.Procedure.Code, Name: filter.Procedure.Name}
	}
	if filter.Speciality != nil {
		appointment.DefaultSpeciality = domain.DefaultRecord{Code: filter.Speciality.Code, Name: filter.Speciality.Name}
	}
	if filter.Insurance != nil {
		appointment.DefaultInsurance = domain.DefaultRecord{Code: filter.Insurance.Code, Name: filter.Insurance.Name}
	}

	return appointment
}

// Enrich converts raw slots to canonical appointments, attaching the resolved
// reference entities and the integration's booking capability flags. The
// default display records stay on the appointment for when a lookup failed.
func (n *slotNormalizer) Enrich(
	raw []domain.RawAppointment,
	doctors map[string]*domain.ReferenceEntity,
	units map[string]*domain.ReferenceEntity,
	req domain.ResolveRequest,
) []domain.Appointment {
	appointments := make([]domain.Appointment, 0, len(raw))

	for _, r := range raw {
		appointment := domain.Appointment{
			Code:            r.Code,
			Date:            r.Date,
			DurationMinutes: r.DurationMinutes,
			Status:          r.Status,

			Doctor:           doctors[r.DoctorCode],
			OrganizationUnit: units[r.Raw.UnitCode],
			Speciality:       req.Filter.Speciality,
			Procedure:        req.Filter.Procedure,
			Insurance:        req.Filter.Insurance,

			DefaultDoctor:           r.DefaultDoctor,
			DefaultOrganizationUnit: r.DefaultOrganizationUnit,
			DefaultProcedure:        r.DefaultProcedure,
			DefaultSpeciality:       r.DefaultSpeciality,
			DefaultInsurance:        r.DefaultInsurance,

			CanCancel:     n.cfg.Integration.CanCancel,
			CanConfirm:    n.cfg.Integration.CanConfirm,
			CanReschedule: n.cfg.Integration.CanReschedule,

			Raw: r.Raw,
		}

		appointments = append(appointments, appointment)
	}

	return appointments
}
