package domain

type SortMethod string

const (
	SortMethodDefault                         SortMethod = "default"
	SortMethodSequential                      SortMethod = "sequential"
	SortMethodFirstEachPeriodDay              SortMethod = "firstEachPeriodDay"
	SortMethodFirstEachHourDay                SortMethod = "firstEachHourDay"
	SortMethodFirstEachAnyPeriodDay           SortMethod = "firstEachAnyPeriodDay"
	SortMethodCombineDatePeriodByOrganization SortMethod = "combineDatePeriodByOrganization"
)

type PeriodOfDay string

const (
	PeriodOfDayAny       PeriodOfDay = ""
	PeriodOfDayMorning   PeriodOfDay = "morning"
	PeriodOfDayAfternoon PeriodOfDay = "afternoon"
	PeriodOfDayEvening   PeriodOfDay = "evening"
)

// Time-of-day window of a period, inclusive start, exclusive end hour.
func (p PeriodOfDay) Window() (start, end string) {
	switch p {
	case PeriodOfDayMorning:
		return "06:00", "12:00"
	case PeriodOfDayAfternoon:
		return "12:00", "19:00"
	case PeriodOfDayEvening:
		return "19:00", "23:59"
	default:
		return "00:00", "23:59"
	}
}

// Period bucket of an hour of day, used by the period-grouping sort methods.
func PeriodOfHour(hour int) PeriodOfDay {
	switch {
	case hour < 12:
		return PeriodOfDayMorning
	case hour < 19:
		return PeriodOfDayAfternoon
	default:
		return PeriodOfDayEvening
	}
}
