package domain

import "time"

// CorrelationFilter is the set of resolved reference entities scoping one
// availability resolution. Entries are nil when the caller did not filter by
// that kind. Every non-nil entry must reference a valid entity for the
// integration; the filter is not mutated after the call starts.
type CorrelationFilter struct {
	Insurance        *ReferenceEntity
	InsurancePlan    *ReferenceEntity
	Speciality       *ReferenceEntity
	Procedure        *ReferenceEntity
	Doctor           *ReferenceEntity
	OrganizationUnit *ReferenceEntity
	AppointmentType  *ReferenceEntity
	TypeOfService    *ReferenceEntity
	OccupationArea   *ReferenceEntity
}

type Patient struct {
	Code      string    `json:"code"`
	Name      string    `json:"name,omitempty"`
	BirthDate time.Time `json:"birthDate,omitempty"`
	Sex       string    `json:"sex,omitempty"`
	Document  string    `json:"document,omitempty"`
}

// Age in whole years at the given reference date. Zero when the birth date is unknown.
func (p *Patient) Age(at time.Time) int {
	if p == nil || p.BirthDate.IsZero() {
		return 0
	}
	age := at.Year() - p.BirthDate.Year()
	if at.YearDay() < p.BirthDate.YearDay() {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
