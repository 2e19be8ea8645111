package in

import (
	"context"

	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
)

type ScheduleResolverUseCase interface {
	// Resolution of bookable slots against the upstream plus business rules
	GetAvailableSchedules(ctx context.Context, req domain.ResolveRequest) (*domain.ResolveResult, error)

	// Minified view of the patient's appointment history, refreshed on cache miss
	GetPatientAppointments(ctx context.Context, patientCode string) (*domain.PatientAppointmentHistory, error)

	// Explicit invalidation of the cached history, e.g. on appointment events
	InvalidatePatientHistory(ctx context.Context, patientCode string) error
}
