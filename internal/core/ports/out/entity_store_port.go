package out

import (
	"context"

	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
)

// EntityStorePort is the reference-data store holding insurances, specialities,
// procedures, doctors and organization units for the integration.
type EntityStorePort interface {
	// Valid = active and not expired for the target integration
	GetValidEntitiesByCode(ctx context.Context, kind domain.EntityKind, codes []string) ([]domain.ReferenceEntity, error)
	GetActiveEntities(ctx context.Context, kind domain.EntityKind, query map[string]string) ([]domain.ReferenceEntity, error)
	GetEntityByCode(ctx context.Context, kind domain.EntityKind, code string) (*domain.ReferenceEntity, error)
}
