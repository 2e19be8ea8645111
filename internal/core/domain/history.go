package domain

import "time"

// Minified history entry, code + date only, for cheap membership checks.
type HistoryEntry struct {
	Code string    `json:"code"`
	Date time.Time `json:"date"`
}

// HistoricalAppointment is a past or future appointment of the patient as the
// upstream reports it, with the codes needed for comparability checks.
type HistoricalAppointment struct {
	Code                string    `json:"code"`
	Date                time.Time `json:"date"`
	Status              string    `json:"status"`
	InsuranceCode       string    `json:"insurance"`
	InsuranceTypeTag    string    `json:"insuranceTypeTag,omitempty"`
	AppointmentTypeCode string    `json:"appointmentType"`
	SpecialityCode      string    `json:"speciality,omitempty"`
	ProcedureCode       string    `json:"procedure,omitempty"`
	DoctorCode          string    `json:"doctor,omitempty"`
	OccupationAreaCode  string    `json:"occupationArea,omitempty"`
	FollowUp            bool      `json:"followUp"`
}

const HistoricalAppointmentStatusCanceled = "canceled"

// A time-bounded allowance from a prior appointment during which the patient
// may book a related appointment without incurring the full gap.
type FollowUpWindow struct {
	InsuranceCode    string    `json:"insurance"`
	InsuranceTypeTag string    `json:"insuranceTypeTag,omitempty"`
	ProcedureCode    string    `json:"procedure,omitempty"`
	SpecialityCode   string    `json:"speciality,omitempty"`
	Until            time.Time `json:"until"`
}

// PatientAppointmentHistory is the cached per-patient view. Overwritten, not
// merged, on every re-fetch. LastAppointment/NextAppointment exclude canceled
// and follow-up appointments; Schedules retains every active one.
type PatientAppointmentHistory struct {
	PatientCode     string                  `json:"patientCode"`
	LastAppointment *HistoricalAppointment  `json:"lastAppointment,omitempty"`
	NextAppointment *HistoricalAppointment  `json:"nextAppointment,omitempty"`
	AppointmentList []HistoryEntry          `json:"appointmentList"`
	Schedules       []HistoricalAppointment `json:"schedules"`
	FollowUps       []FollowUpWindow        `json:"followUps,omitempty"`
	FetchedAt       time.Time               `json:"fetchedAt"`
}

func (h *PatientAppointmentHistory) Contains(code string) bool {
	for _, entry := range h.AppointmentList {
		if entry.Code == code {
			return true
		}
	}
	return false
}
