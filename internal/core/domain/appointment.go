package domain

import "time"

type AppointmentStatus string

const (
	AppointmentStatusOpen     AppointmentStatus = "open"
	AppointmentStatusBooked   AppointmentStatus = "booked"
	AppointmentStatusCanceled AppointmentStatus = "canceled"
)

// Best-effort display record used when the full reference entity cannot be
// resolved for a slot.
type DefaultRecord struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Original upstream identifiers kept on the slot, needed later to build the
// booking request against the vendor.
type RawSlotData struct {
	RawDoctorCode   string `json:"rawDoctorCode"`
	RawResourceCode string `json:"rawResourceCode"`
	UnitCode        string `json:"unitCode"`
}

// RawAppointment is the upstream-agnostic candidate slot produced by
// normalization. Constructed fresh per upstream response item and consumed
// once; never persisted.
type RawAppointment struct {
	// This upstream has no distinct slot id, the code is the formatted slot time
	Code            string            `json:"code"`
	Date            time.Time         `json:"date"`
	DurationMinutes int               `json:"duration"`
	Status          AppointmentStatus `json:"status"`
	DoctorCode      string            `json:"doctorCode"`

	DefaultDoctor           DefaultRecord `json:"defaultDoctor"`
	DefaultOrganizationUnit DefaultRecord `json:"defaultOrganizationUnit"`
	DefaultProcedure        DefaultRecord `json:"defaultProcedure"`
	DefaultSpeciality       DefaultRecord `json:"defaultSpeciality"`
	DefaultInsurance        DefaultRecord `json:"defaultInsurance"`

	Raw RawSlotData `json:"raw"`
}

type AppointmentAction struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
}

// Appointment is the canonical bookable slot returned to callers. Immutable
// after normalization.
type Appointment struct {
	Code            string            `json:"code"`
	Date            time.Time         `json:"date"`
	DurationMinutes int               `json:"duration"`
	Status          AppointmentStatus `json:"status"`

	Doctor           *ReferenceEntity `json:"doctor,omitempty"`
	OrganizationUnit *ReferenceEntity `json:"organizationUnit,omitempty"`
	Speciality       *ReferenceEntity `json:"speciality,omitempty"`
	Procedure        *ReferenceEntity `json:"procedure,omitempty"`
	Insurance        *ReferenceEntity `json:"insurance,omitempty"`

	DefaultDoctor           DefaultRecord `json:"defaultDoctor"`
	DefaultOrganizationUnit DefaultRecord `json:"defaultOrganizationUnit"`
	DefaultProcedure        DefaultRecord `json:"defaultProcedure"`
	DefaultSpeciality       DefaultRecord `json:"defaultSpeciality"`
	DefaultInsurance        DefaultRecord `json:"defaultInsurance"`

	CanCancel     bool `json:"canCancel"`
	CanConfirm    bool `json:"canConfirm"`
	CanReschedule bool `json:"canReschedule"`

	Actions []AppointmentAction `json:"actions,omitempty"`

	Raw RawSlotData `json:"raw"`
}
