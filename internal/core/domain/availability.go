package domain

import (
	"github.com/suchimauz/clinic-availability-resolver/internal/core/json_types"
)

// AvailabilityQuery is one upstream availability call. Wide requested windows
// are split into several queries with shifted FromDay (see the query builder).
type AvailabilityQuery struct {
	OrganizationUnits   []string `json:"organizationUnits"`
	DoctorCode          string   `json:"doctor,omitempty"`
	InsuranceCode       string   `json:"insurance,omitempty"`
	InsurancePlanCode   string   `json:"insurancePlan,omitempty"`
	SpecialityCode      string   `json:"speciality,omitempty"`
	ProcedureCode       string   `json:"procedure,omitempty"`
	AppointmentTypeCode string   `json:"appointmentType,omitempty"`
	FromDay             int      `json:"fromDay"`
	SpanDays            int      `json:"spanDays"`
	StartTime           string   `json:"startTime,omitempty"`
	EndTime             string   `json:"endTime,omitempty"`
	PatientAge          int      `json:"patientAge,omitempty"`
	PatientSex          string   `json:"patientSex,omitempty"`
	Limit               int      `json:"limit,omitempty"`
}

// One open time entry inside a resource's day.
type AvailabilityTime struct {
	Time                  json_types.DateTime `json:"time"`
	DurationMinutes       int                 `json:"duration"`
	Status                string              `json:"status"`
	ResponsibleDoctorCode string              `json:"responsibleDoctor"`
}

type AvailabilityDay struct {
	Date  json_types.Date    `json:"date"`
	Times []AvailabilityTime `json:"times"`
}

// A bookable resource (agenda) of an organization unit. For exam schedules the
// doctor identity lives here instead of on the time entry.
type AvailabilityResource struct {
	Code                  string            `json:"code"`
	Description           string            `json:"description"`
	ResponsibleDoctorCode string            `json:"responsibleDoctor"`
	Days                  []AvailabilityDay `json:"days"`
}

// UnitFragment is the per-organization-unit slice of one upstream response.
// Fragments of the same unit across chunked queries are merged by
// concatenating their resource lists.
type UnitFragment struct {
	UnitCode  string                 `json:"unitCode"`
	UnitName  string                 `json:"unitName"`
	Resources []AvailabilityResource `json:"resources"`
}
