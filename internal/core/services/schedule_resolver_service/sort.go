package schedule_resolver_service

import (
	"fmt"
	"math/rand"

	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

type AppointmentSlice []domain.Appointment

// quickSort orders appointments by slot time ascending.
func (s AppointmentSlice) quickSort() AppointmentSlice {
	if len(s) < 2 {
		return s
	}

	pivot := s[len(s)/2]

	less := AppointmentSlice{}
	equal := AppointmentSlice{}
	greater := AppointmentSlice{}

	for _, appointment := range s {
		if appointment.Date.Before(pivot.Date) {
			less = append(less, appointment)
		} else if appointment.Date.Equal(pivot.Date) {
			equal = append(equal, appointment)
		} else {
			greater = append(greater, appointment)
		}
	}

	return append(append(less.quickSort(), equal...), greater.quickSort()...)
}

type appointmentRanker struct {
	logger out.LoggerPort
}

func newAppointmentRanker(logger out.LoggerPort) *appointmentRanker {
	return &appointmentRanker{
		logger: logger.WithModule("AppointmentRanker"),
	}
}

// Rank applies the selection method over the already business-rule-compliant
// candidate set, then the optional shuffle, then the limit. The candidates
// themselves are never mutated.
func (r *appointmentRanker) Rank(appointments []domain.Appointment, req domain.ResolveRequest) []domain.Appointment {
	selected := r.selectByMethod(appointments, req)

	if req.Randomize {
		rand.Shuffle(len(selected), func(i, j int) {
			selected[i], selected[j] = selected[j], selected[i]
		})
	}

	if req.Limit > 0 && len(selected) > req.Limit {
		selected = selected[:req.Limit]
	}

	return selected
}

func (r *appointmentRanker) selectByMethod(appointments []domain.Appointment, req domain.ResolveRequest) []domain.Appointment {
	candidates := filterPeriod(appointments, req.Period)

	switch req.Sort {
	case domain.SortMethodDefault, "":
		// Candidate order as produced by normalization
		return append(AppointmentSlice{}, candidates...)

	case domain.SortMethodSequential:
		return append(AppointmentSlice{}, candidates...).quickSort()

	case domain.SortMethodFirstEachPeriodDay:
		// One slot per day, within the requested period
		return firstPerKey(candidates, func(a domain.Appointment) string {
			return a.Date.Format("2006-01-02")
		})

	case domain.SortMethodFirstEachHourDay:
		return firstPerKey(candidates, func(a domain.Appointment) string {
			return a.Date.Format("2006-01-02 15")
		})

	case domain.SortMethodFirstEachAnyPeriodDay:
		// One slot per day and period, across all periods of the day
		return firstPerKey(candidates, func(a domain.Appointment) string {
			return a.Date.Format("2006-01-02") + "/" + string(domain.PeriodOfHour(a.Date.Hour()))
		})

	case domain.SortMethodCombineDatePeriodByOrganization:
		return firstPerKey(candidates, func(a domain.Appointment) string {
			return fmt.Sprintf("%s/%s/%s",
				a.Raw.UnitCode,
				a.Date.Format("2006-01-02"),
				domain.PeriodOfHour(a.Date.Hour()),
			)
		})

	default:
		r.logger.Warn("ranker.sort.unknown_method", out.LogFields{
			"method": req.Sort,
		})
		return append(AppointmentSlice{}, candidates...)
	}
}

// firstPerKey takes the chronologically first slot of every key group,
// keeping the groups in chronological order.
func firstPerKey(appointments []domain.Appointment, key func(domain.Appointment) string) []domain.Appointment {
	ordered := append(AppointmentSlice{}, appointments...).quickSort()

	seen := make(map[string]struct{})
	selected := make([]domain.Appointment, 0)

	for _, appointment := range ordered {
		k := key(appointment)
		if _, exists := seen[k]; exists {
			continue
		}
		seen[k] = struct{}{}
		selected = append(selected, appointment)
	}

	return selected
}

// filterPeriod drops slots outside the requested period of day. The upstream
// query already windows by time, this guards merged data from lax chunks.
func filterPeriod(appointments []domain.Appointment, period domain.PeriodOfDay) []domain.Appointment {
	if period == domain.PeriodOfDayAny {
		return appointments
	}

	filtered := make([]domain.Appointment, 0, len(appointments))
	for _, appointment := range appointments {
		if domain.PeriodOfHour(appointment.Date.Hour()) == period {
			filtered = append(filtered, appointment)
		}
	}
	return filtered
}
