package domain

// ResolveRequest is the input of one availability resolution call.
// FromDay/UntilDay are day offsets from today.
type ResolveRequest struct {
	Filter  CorrelationFilter
	Patient *Patient

	FromDay  int
	UntilDay int
	Period   PeriodOfDay

	Sort      SortMethod
	Randomize bool
	Limit     int

	// Skip the appointment-type comparability check
	IgnoreAppointmentType bool
	// Appointment codes excluded from history comparison, e.g. the slot being
	// rescheduled away from
	IgnoredCodes []string
}

type ResolveMetadata struct {
	// Effective fromDay after the inter-appointment rule raised it, zero when
	// no adjustment was applied
	InterAppointmentPeriod int `json:"interAppointmentPeriod,omitempty"`
}

type ResolveResult struct {
	Schedules []Appointment   `json:"schedules"`
	Metadata  ResolveMetadata `json:"metadata"`
}

// InterAppointmentOutcome is the validator's result, computed fresh per
// resolution call. Either a single adjusted FromDay (global mode) or a
// per-doctor minimum-gap map (doctor-scoped mode), never both.
type InterAppointmentOutcome struct {
	FromDay       int
	AppliedPeriod int
	// doctor code -> minimum gap in days from today; nil unless doctor-scoped
	DoctorGaps map[string]int
}
