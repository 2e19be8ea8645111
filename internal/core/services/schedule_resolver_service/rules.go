package schedule_resolver_service

import (
	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
)

// A comparability strategy is one named predicate over a historical
// appointment. A candidate is comparable to the request when every strategy
// in the configured list passes.
type comparabilityStrategy struct {
	name         string
	isComparable func(candidate domain.HistoricalAppointment) bool
}

// buildStrategies assembles the ordered strategy list for the integration:
// insurance always, appointment-type unless the caller opted out, plus the
// configured mode-specific predicate.
func buildStrategies(cfg *config.Config, req domain.ResolveRequest) []comparabilityStrategy {
	strategies := []comparabilityStrategy{
		{name: "insurance", isComparable: insuranceComparable(req.Filter)},
	}

	if !req.IgnoreAppointmentType {
		strategies = append(strategies, comparabilityStrategy{
			name:         "appointmentType",
			isComparable: appointmentTypeComparable(req.Filter),
		})
	}

	switch cfg.Integration.InterAppointmentStrategy {
	case config.StrategyOccupationArea:
		strategies = append(strategies, comparabilityStrategy{
			name:         "occupationArea",
			isComparable: occupationAreaComparable(req.Filter),
		})
	case config.StrategyDoctor:
		// Only restricts when a doctor was pinned; without one the validator
		// switches to the per-doctor gap map instead
		if req.Filter.Doctor != nil {
			strategies = append(strategies, comparabilityStrategy{
				name:         "doctor",
				isComparable: doctorComparable(req.Filter),
			})
		}
	case config.StrategyProcedureSpeciality:
		strategies = append(strategies, comparabilityStrategy{
			name:         "procedureSpeciality",
			isComparable: procedureOrSpecialityComparable(req.Filter),
		})
	}

	return strategies
}

// comparableAppointments filters the history to non-follow-up, non-ignored
// appointments passing every strategy.
func comparableAppointments(strategies []comparabilityStrategy, req domain.ResolveRequest, history *domain.PatientAppointmentHistory) []domain.HistoricalAppointment {
	ignored := make(map[string]struct{}, len(req.IgnoredCodes))
	for _, code := range req.IgnoredCodes {
		ignored[code] = struct{}{}
	}

	candidates := make([]domain.HistoricalAppointment, 0)

nextCandidate:
	for _, candidate := range history.Schedules {
		if candidate.FollowUp {
			continue
		}
		if _, skip := ignored[candidate.Code]; skip {
			continue
		}
		for _, strategy := range strategies {
			if !strategy.isComparable(candidate) {
				continue nextCandidate
			}
		}
		candidates = append(candidates, candidate)
	}

	return candidates
}

// Insurance matches by code, or by the insurance-type tag that unifies
// equivalent codes across legacy records.
func insuranceComparable(filter domain.CorrelationFilter) func(domain.HistoricalAppointment) bool {
	return func(candidate domain.HistoricalAppointment) bool {
		if filter.Insurance == nil {
			return true
		}
		if candidate.InsuranceCode == filter.Insurance.Code {
			return true
		}
		tag := filter.Insurance.Params.InsuranceTypeTag
		return tag != "" && candidate.InsuranceTypeTag == tag
	}
}

func appointmentTypeComparable(filter domain.CorrelationFilter) func(domain.HistoricalAppointment) bool {
	return func(candidate domain.HistoricalAppointment) bool {
		if filter.AppointmentType == nil {
			return true
		}
		return candidate.AppointmentTypeCode == filter.AppointmentType.Code
	}
}

func occupationAreaComparable(filter domain.CorrelationFilter) func(domain.HistoricalAppointment) bool {
	return func(candidate domain.HistoricalAppointment) bool {
		if filter.OccupationArea == nil {
			return true
		}
		return candidate.OccupationAreaCode == filter.OccupationArea.Code
	}
}

func doctorComparable(filter domain.CorrelationFilter) func(domain.HistoricalAppointment) bool {
	return func(candidate domain.HistoricalAppointment) bool {
		return MatchesDoctor(filter.Doctor, candidate.DoctorCode)
	}
}

// Procedure when requested, else speciality as the fallback axis.
func procedureOrSpecialityComparable(filter domain.CorrelationFilter) func(domain.HistoricalAppointment) bool {
	return func(candidate domain.HistoricalAppointment) bool {
		if filter.Procedure != nil {
			return candidate.ProcedureCode == filter.Procedure.Code
		}
		if filter.Speciality != nil {
			return candidate.SpecialityCode == filter.Speciality.Code
		}
		return true
	}
}
