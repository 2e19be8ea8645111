package out

import (
	"context"

	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
)

// FlowRulesPort attaches post-hoc UI actions to an appointment. Annotation is
// best-effort, a failure here must not abort slot resolution.
type FlowRulesPort interface {
	Match(ctx context.Context, appointment domain.Appointment) ([]domain.AppointmentAction, error)
}
