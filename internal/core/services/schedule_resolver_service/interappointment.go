package schedule_resolver_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
	"github.com/suchimauz/clinic-availability-resolver/internal/utils"
)

// ErrInterAppointmentValidation means the patient's history could not be
// established, so the minimum-gap rule cannot be checked. Booking must not
// proceed without this guarantee, there is no "assume no history" fallback.
var ErrInterAppointmentValidation = errors.New("unable to validate inter-appointment period")

type interAppointmentValidator struct {
	history *historyCache
	audit   out.AuditPort
	cfg     *config.Config
	logger  out.LoggerPort
}

func newInterAppointmentValidator(history *historyCache, audit out.AuditPort, cfg *config.Config, logger out.LoggerPort) *interAppointmentValidator {
	return &interAppointmentValidator{
		history: history,
		audit:   audit,
		cfg:     cfg,
		logger:  logger.WithModule("InterAppointmentValidator"),
	}
}

// Validate computes the minimum legal spacing between the new appointment and
// the patient's most recent comparable one. Global mode raises the effective
// fromDay; doctor-scoped mode produces a per-doctor gap map consumed during
// slot filtering. The outcome is derived fresh per call, never cached.
func (v *interAppointmentValidator) Validate(ctx context.Context, req domain.ResolveRequest) (*domain.InterAppointmentOutcome, error) {
	outcome := &domain.InterAppointmentOutcome{FromDay: req.FromDay}

	if reason := v.skipReason(req); reason != "" {
		v.audit.Emit("interappointment.skipped", out.LogFields{
			"reason": reason,
		})
		return outcome, nil
	}

	if req.Patient == nil || req.Patient.Code == "" {
		return nil, fmt.Errorf("interappointment.patient.missing: %w", ErrInterAppointmentValidation)
	}

	history, err := v.history.Load(ctx, req.Patient.Code)
	if err != nil {
		v.audit.Emit("interappointment.history_miss", out.LogFields{
			"patientCode": req.Patient.Code,
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("interappointment.history.load_failed: %v: %w", err, ErrInterAppointmentValidation)
	}

	candidates := comparableAppointments(buildStrategies(v.cfg, req), req, history)

	// Doctor-scoped mode without a pinned doctor: pass 1 builds the immutable
	// gap map here, pass 2 filters slots from it in the normalizer
	if v.cfg.Integration.InterAppointmentStrategy == config.StrategyDoctor && req.Filter.Doctor == nil {
		outcome.DoctorGaps = v.doctorGaps(req, history, candidates)
		v.audit.Emit("interappointment.gap_computed", out.LogFields{
			"patientCode": req.Patient.Code,
			"mode":        "doctor",
			"doctors":     len(outcome.DoctorGaps),
		})
		return outcome, nil
	}

	last := mostRecentComparable(candidates)
	if last == nil {
		v.audit.Emit("interappointment.gap_computed", out.LogFields{
			"patientCode": req.Patient.Code,
			"mode":        "global",
			"gapDays":     0,
		})
		return outcome, nil
	}

	gap := v.minimumGap(req, history, *last)
	if gap > outcome.FromDay {
		outcome.FromDay = gap
		outcome.AppliedPeriod = gap
	}

	v.logger.Info("interappointment.validated", out.LogFields{
		"patientCode":     req.Patient.Code,
		"lastAppointment": last.Code,
		"gapDays":         gap,
		"fromDay":         outcome.FromDay,
	})
	v.audit.Emit("interappointment.gap_computed", out.LogFields{
		"patientCode": req.Patient.Code,
		"mode":        "global",
		"gapDays":     gap,
	})

	return outcome, nil
}

// skipReason names why the rule does not run at all, empty when it must run.
func (v *interAppointmentValidator) skipReason(req domain.ResolveRequest) string {
	if !v.cfg.Integration.InterAppointmentEnabled {
		return "integration_disabled"
	}
	if req.Filter.TypeOfService != nil && req.Filter.TypeOfService.Params.ScheduleKind == domain.ScheduleKindFollowUp {
		return "type_of_service_follow_up"
	}
	if req.Filter.AppointmentType.IsFollowUpScheduleType() {
		return "appointment_type_follow_up"
	}
	return ""
}

// minimumGap is the insurance-based gap, possibly raised by an active
// follow-up window: period − days_since(last) + 1, never negative.
func (v *interAppointmentValidator) minimumGap(req domain.ResolveRequest, history *domain.PatientAppointmentHistory, last domain.HistoricalAppointment) int {
	period := v.cfg.Integration.DefaultPeriodDays
	if req.Filter.Insurance != nil && req.Filter.Insurance.Params.InterAppointmentPeriod > 0 {
		period = req.Filter.Insurance.Params.InterAppointmentPeriod
	}

	gap := period - utils.DaysBetween(last.Date, time.Now()) + 1
	if gap < 0 {
		gap = 0
	}

	if remaining := v.followUpRemaining(req, history); remaining > gap {
		gap = remaining
	}

	return gap
}

// followUpRemaining returns the largest remaining allowance among active
// follow-up windows matching the requested insurance and procedure or
// speciality.
func (v *interAppointmentValidator) followUpRemaining(req domain.ResolveRequest, history *domain.PatientAppointmentHistory) int {
	now := time.Now()
	best := 0

	for _, window := range history.FollowUps {
		if window.Until.Before(now) {
			continue
		}
		if !followUpMatches(req.Filter, window) {
			continue
		}
		if remaining := utils.DaysUntil(window.Until); remaining > best {
			best = remaining
		}
	}

	return best
}

func followUpMatches(filter domain.CorrelationFilter, window domain.FollowUpWindow) bool {
	if filter.Insurance != nil {
		sameCode := window.InsuranceCode == filter.Insurance.Code
		sameTag := filter.Insurance.Params.InsuranceTypeTag != "" &&
			window.InsuranceTypeTag == filter.Insurance.Params.InsuranceTypeTag
		if !sameCode && !sameTag {
			return false
		}
	}

	if filter.Procedure != nil {
		return window.ProcedureCode == filter.Procedure.Code
	}
	if filter.Speciality != nil {
		return window.SpecialityCode == filter.Speciality.Code
	}
	return true
}

// doctorGaps builds the per-doctor minimum-gap map: for every comparable
// appointment grouped by doctor, the doctor's own most recent one drives the
// gap. Doctors with no remaining restriction are left out of the map.
func (v *interAppointmentValidator) doctorGaps(req domain.ResolveRequest, history *domain.PatientAppointmentHistory, candidates []domain.HistoricalAppointment) map[string]int {
	byDoctor := make(map[string][]domain.HistoricalAppointment)
	for _, candidate := range candidates {
		if candidate.DoctorCode == "" {
			continue
		}
		byDoctor[candidate.DoctorCode] = append(byDoctor[candidate.DoctorCode], candidate)
	}

	gaps := make(map[string]int, len(byDoctor))
	for doctorCode, appointments := range byDoctor {
		last := mostRecentComparable(appointments)
		if last == nil {
			continue
		}
		if gap := v.minimumGap(req, history, *last); gap > 0 {
			gaps[doctorCode] = gap
		}
	}

	return gaps
}

// mostRecentComparable picks the latest appointment by date. When several
// share the most recent date, the lexicographically greater appointment code
// wins, keeping the choice deterministic.
func mostRecentComparable(candidates []domain.HistoricalAppointment) *domain.HistoricalAppointment {
	var best *domain.HistoricalAppointment
	for i := range candidates {
		candidate := &candidates[i]
		if best == nil ||
			candidate.Date.After(best.Date) ||
			(candidate.Date.Equal(best.Date) && candidate.Code > best.Code) {
			best = candidate
		}
	}
	return best
}
