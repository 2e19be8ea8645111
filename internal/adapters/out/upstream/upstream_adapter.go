package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

// UpstreamAdapter talks to the clinic-management vendor API. No retries here,
// failure policy lives with the callers.
type UpstreamAdapter struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	logger   out.LoggerPort
}

func NewUpstreamAdapter(cfg *config.Config, logger out.LoggerPort) *UpstreamAdapter {
	return &UpstreamAdapter{
		client:   &http.Client{Timeout: time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second},
		baseURL:  cfg.Upstream.URL,
		username: cfg.Upstream.Username,
		password: cfg.Upstream.Password,
		logger:   logger,
	}
}

type availabilityResponse struct {
	Units []domain.UnitFragment `json:"units"`
}

func (a *UpstreamAdapter) ListAvailability(ctx context.Context, query domain.AvailabilityQuery) ([]domain.UnitFragment, error) {
	a.logger.Info("upstream.availability.fetch", out.LogFields{
		"fromDay":  query.FromDay,
		"spanDays": query.SpanDays,
		"units":    len(query.OrganizationUnits),
	})

	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/schedules/availability", a.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		a.logger.Error("upstream.availability.fetch_failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.username, a.password)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("upstream.availability.fetch_failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Error("upstream.availability.fetch_failed", out.LogFields{
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var response availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		a.logger.Error("upstream.availability.decode_failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	a.logger.Debug("upstream.availability.fetch_success", out.LogFields{
		"units": len(response.Units),
	})

	return response.Units, nil
}

func (a *UpstreamAdapter) ListPatientSchedules(ctx context.Context, patientCode string) ([]domain.HistoricalAppointment, error) {
	a.logger.Info("upstream.patient_schedules.fetch", out.LogFields{
		"patientCode": patientCode,
	})

	url := fmt.Sprintf("%s/api/patients/%s/schedules", a.baseURL, patientCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(a.username, a.password)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("upstream.patient_schedules.fetch_failed", out.LogFields{
			"patientCode": patientCode,
			"error":       err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Error("upstream.patient_schedules.fetch_failed", out.LogFields{
			"patientCode": patientCode,
			"status":      resp.StatusCode,
		})
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var schedules []domain.HistoricalAppointment
	if err := json.NewDecoder(resp.Body).Decode(&schedules); err != nil {
		a.logger.Error("upstream.patient_schedules.decode_failed", out.LogFields{
			"patientCode": patientCode,
			"error":       err.Error(),
		})
		return nil, err
	}

	a.logger.Debug("upstream.patient_schedules.fetch_success", out.LogFields{
		"patientCode": patientCode,
		"count":       len(schedules),
	})

	return schedules, nil
}

func (a *UpstreamAdapter) ListPatientFollowUpSchedules(ctx context.Context, patientCode string) ([]domain.FollowUpWindow, error) {
	a.logger.Info("upstream.patient_followups.fetch", out.LogFields{
		"patientCode": patientCode,
	})

	url := fmt.Sprintf("%s/api/patients/%s/follow-ups", a.baseURL, patientCode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(a.username, a.password)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("upstream.patient_followups.fetch_failed", out.LogFields{
			"patientCode": patientCode,
			"error":       err.Error(),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Error("upstream.patient_followups.fetch_failed", out.LogFields{
			"patientCode": patientCode,
			"status":      resp.StatusCode,
		})
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var followUps []domain.FollowUpWindow
	if err := json.NewDecoder(resp.Body).Decode(&followUps); err != nil {
		a.logger.Error("upstream.patient_followups.decode_failed", out.LogFields{
			"patientCode": patientCode,
			"error":       err.Error(),
		})
		return nil, err
	}

	return followUps, nil
}
