package out

import (
	"context"
	"time"

	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
)

// CachePort is the generic cache behind the organization-unit list and the
// per-patient history. Values are opaque JSON; keys are typed and namespaced
// by integration (see domain.CacheKey).
type CachePort interface {
	Get(ctx context.Context, key domain.CacheKey) ([]byte, bool)
	Set(ctx context.Context, key domain.CacheKey, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key domain.CacheKey)
}
