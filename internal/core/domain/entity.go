package domain

import "encoding/json"

type EntityKind string

const (
	EntityKindInsurance        EntityKind = "insurance"
	EntityKindInsurancePlan    EntityKind = "insurancePlan"
	EntityKindSpeciality       EntityKind = "speciality"
	EntityKindProcedure        EntityKind = "procedure"
	EntityKindDoctor           EntityKind = "doctor"
	EntityKindOrganizationUnit EntityKind = "organizationUnit"
	EntityKindAppointmentType  EntityKind = "appointmentType"
	EntityKindTypeOfService    EntityKind = "typeOfService"
	EntityKindOccupationArea   EntityKind = "occupationArea"
)

type ScheduleKind string

const (
	ScheduleKindConsultation ScheduleKind = "consultation"
	ScheduleKindExam         ScheduleKind = "exam"
	ScheduleKindFollowUp     ScheduleKind = "followUp"
)

// Delimiter joining the upstream codes of doctors grouped by license number.
const DoctorHandleDelimiter = ","

// Kind-specific business rules stored with the reference entity.
type EntityParams struct {
	// Minimum days an insurance requires between comparable appointments
	InterAppointmentPeriod int `json:"interAppointmentPeriod,omitempty"`
	// Tag unifying equivalent insurance codes across legacy records
	InsuranceTypeTag string `json:"insuranceTypeTag,omitempty"`
	// Doctor license number (CRM equivalent), grouping key
	LicenseNumber string `json:"licenseNumber,omitempty"`
	// For appointment types: consultation, exam or followUp
	ScheduleKind ScheduleKind `json:"scheduleKind,omitempty"`
	// UI action names attached by the flow rules engine
	Actions []string `json:"actions,omitempty"`
}

type ReferenceEntity struct {
	Code   string     `json:"code"`
	Kind   EntityKind `json:"kind"`
	Name   string     `json:"name"`
	Active bool       `json:"active"`
	// Composite identity of a grouped doctor, sibling codes joined by DoctorHandleDelimiter
	Handle string          `json:"handle,omitempty"`
	Params EntityParams    `json:"params"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (e *ReferenceEntity) IsFollowUpScheduleType() bool {
	return e != nil && e.Params.ScheduleKind == ScheduleKindFollowUp
}
