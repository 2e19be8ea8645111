package flowrules

import (
	"context"

	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

// FlowRulesAdapter derives UI actions from the action names stored on the
// appointment's resolved entities. Evaluation is purely in-memory over data
// the resolver already fetched.
type FlowRulesAdapter struct {
	logger out.LoggerPort
}

func NewFlowRulesAdapter(logger out.LoggerPort) *FlowRulesAdapter {
	return &FlowRulesAdapter{
		logger: logger.WithModule("FlowRulesAdapter"),
	}
}

func (a *FlowRulesAdapter) Match(ctx context.Context, appointment domain.Appointment) ([]domain.AppointmentAction, error) {
	actions := make([]domain.AppointmentAction, 0)
	seen := make(map[string]struct{})

	for _, entity := range []*domain.ReferenceEntity{
		appointment.Insurance,
		appointment.Procedure,
		appointment.Speciality,
		appointment.OrganizationUnit,
	} {
		if entity == nil {
			continue
		}
		for _, name := range entity.Params.Actions {
			if _, exists := seen[name]; exists {
				continue
			}
			seen[name] = struct{}{}
			actions = append(actions, domain.AppointmentAction{
				Name: name,
				Params: map[string]string{
					"appointmentCode": appointment.Code,
					"entityCode":      entity.Code,
				},
			})
		}
	}

	return actions, nil
}
