package entitystore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	nurl "net/url"
	"strings"
	"time"

	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

// EntityStoreAdapter reads reference entities (doctors, insurances,
// specialities, procedures, organization units) from the integration's
// reference-data service.
type EntityStoreAdapter struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	logger   out.LoggerPort
}

func NewEntityStoreAdapter(cfg *config.Config, logger out.LoggerPort) *EntityStoreAdapter {
	return &EntityStoreAdapter{
		client:   &http.Client{Timeout: time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second},
		baseURL:  cfg.Upstream.URL,
		username: cfg.Upstream.Username,
		password: cfg.Upstream.Password,
		logger:   logger,
	}
}

func (a *EntityStoreAdapter) GetValidEntitiesByCode(ctx context.Context, kind domain.EntityKind, codes []string) ([]domain.ReferenceEntity, error) {
	query := nurl.Values{}
	query.Add("codes", strings.Join(codes, ","))
	query.Add("valid", "true")

	return a.listEntities(ctx, kind, query)
}

func (a *EntityStoreAdapter) GetActiveEntities(ctx context.Context, kind domain.EntityKind, filters map[string]string) ([]domain.ReferenceEntity, error) {
	query := nurl.Values{}
	query.Add("active", "true")
	for key, value := range filters {
		query.Add(key, value)
	}

	return a.listEntities(ctx, kind, query)
}

func (a *EntityStoreAdapter) GetEntityByCode(ctx context.Context, kind domain.EntityKind, code string) (*domain.ReferenceEntity, error) {
	url := fmt.Sprintf("%s/api/entities/%s/%s", a.baseURL, kind, nurl.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(a.username, a.password)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("entitystore.entity.fetch_failed", out.LogFields{
			"kind":  kind,
			"code":  code,
			"error": err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		a.logger.Error("entitystore.entity.fetch_failed", out.LogFields{
			"kind":   kind,
			"code":   code,
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var entity domain.ReferenceEntity
	if err := json.NewDecoder(resp.Body).Decode(&entity); err != nil {
		return nil, err
	}

	return &entity, nil
}

func (a *EntityStoreAdapter) listEntities(ctx context.Context, kind domain.EntityKind, query nurl.Values) ([]domain.ReferenceEntity, error) {
	a.logger.Debug("entitystore.entities.fetch", out.LogFields{
		"kind":  kind,
		"query": query.Encode(),
	})

	url := fmt.Sprintf("%s/api/entities/%s", a.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.URL.RawQuery = query.Encode()
	req.SetBasicAuth(a.username, a.password)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("entitystore.entities.fetch_failed", out.LogFields{
			"kind":  kind,
			"error": err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Error("entitystore.entities.fetch_failed", out.LogFields{
			"kind":   kind,
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var entities []domain.ReferenceEntity
	if err := json.NewDecoder(resp.Body).Decode(&entities); err != nil {
		a.logger.Error("entitystore.entities.decode_failed", out.LogFields{
			"kind":  kind,
			"error": err.Error(),
		})
		return nil, err
	}

	return entities, nil
}
