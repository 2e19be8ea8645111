package out

import (
	"context"

	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
)

// UpstreamSchedulePort is the clinic-management vendor API. Calls may fail
// with a transport error; no retry is built in at this boundary.
type UpstreamSchedulePort interface {
	ListAvailability(ctx context.Context, query domain.AvailabilityQuery) ([]domain.UnitFragment, error)
	ListPatientSchedules(ctx context.Context, patientCode string) ([]domain.HistoricalAppointment, error)
	ListPatientFollowUpSchedules(ctx context.Context, patientCode string) ([]domain.FollowUpWindow, error)
}
