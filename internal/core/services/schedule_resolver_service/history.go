package schedule_resolver_service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

// historyCache maintains the per-patient, per-integration view of past and
// future appointments plus follow-up windows. Entries are overwritten, never
// merged, on refresh; concurrent refreshes for the same patient race
// last-write-wins by design of the shared-resource policy.
type historyCache struct {
	upstream out.UpstreamSchedulePort
	cache    out.CachePort
	cfg      *config.Config
	logger   out.LoggerPort
}

func newHistoryCache(upstream out.UpstreamSchedulePort, cache out.CachePort, cfg *config.Config, logger out.LoggerPort) *historyCache {
	return &historyCache{
		upstream: upstream,
		cache:    cache,
		cfg:      cfg,
		logger:   logger.WithModule("PatientHistoryCache"),
	}
}

func (h *historyCache) key(patientCode string) domain.CacheKey {
	return domain.CacheKey{
		Integration: h.cfg.Integration.Code,
		Kind:        domain.CacheKindPatientHistory,
		Ref:         patientCode,
	}
}

// Get returns the cached history without triggering a refresh.
func (h *historyCache) Get(ctx context.Context, patientCode string) (*domain.PatientAppointmentHistory, bool) {
	if h.cache == nil {
		return nil, false
	}

	value, exists := h.cache.Get(ctx, h.key(patientCode))
	if !exists {
		h.logger.Debug("history.cache.miss", out.LogFields{
			"patientCode": patientCode,
		})
		return nil, false
	}

	var history domain.PatientAppointmentHistory
	if err := json.Unmarshal(value, &history); err != nil {
		h.logger.Warn("history.cache.decode_failed", out.LogFields{
			"patientCode": patientCode,
			"error":       err.Error(),
		})
		h.cache.Delete(ctx, h.key(patientCode))
		return nil, false
	}

	return &history, true
}

// Load is the fetch-on-miss read: a cache miss triggers exactly one refresh,
// and a refresh that still cannot produce a history is an error for the
// caller to escalate.
func (h *historyCache) Load(ctx context.Context, patientCode string) (*domain.PatientAppointmentHistory, error) {
	if history, exists := h.Get(ctx, patientCode); exists {
		return history, nil
	}

	history, err := h.Refresh(ctx, patientCode)
	if err != nil {
		return nil, err
	}
	if history == nil {
		return nil, fmt.Errorf("history.refresh.empty: patient %s", patientCode)
	}

	return history, nil
}

// Refresh fetches the patient's schedules and follow-up windows and
// overwrites the cached entry.
func (h *historyCache) Refresh(ctx context.Context, patientCode string) (*domain.PatientAppointmentHistory, error) {
	schedules, err := h.upstream.ListPatientSchedules(ctx, patientCode)
	if err != nil {
		return nil, fmt.Errorf("history.schedules.fetch_failed: %w", err)
	}

	followUps, err := h.upstream.ListPatientFollowUpSchedules(ctx, patientCode)
	if err != nil {
		return nil, fmt.Errorf("history.followups.fetch_failed: %w", err)
	}

	history := buildHistory(patientCode, schedules, followUps, time.Now())

	if h.cache != nil {
		if value, err := json.Marshal(history); err == nil {
			h.cache.Set(ctx, h.key(patientCode), value, h.cfg.HistoryTTL())
		}
	}

	h.logger.Debug("history.refreshed", out.LogFields{
		"patientCode": patientCode,
		"schedules":   len(history.Schedules),
		"followUps":   len(history.FollowUps),
	})

	return history, nil
}

func (h *historyCache) Invalidate(ctx context.Context, patientCode string) {
	if h.cache == nil {
		return
	}
	h.cache.Delete(ctx, h.key(patientCode))
}

// buildHistory derives the cached view: canceled appointments are dropped,
// follow-up appointments stay in the schedules list but never become
// last/next, and the minified list keeps code + date only.
func buildHistory(patientCode string, schedules []domain.HistoricalAppointment, followUps []domain.FollowUpWindow, now time.Time) *domain.PatientAppointmentHistory {
	history := &domain.PatientAppointmentHistory{
		PatientCode:     patientCode,
		AppointmentList: make([]domain.HistoryEntry, 0, len(schedules)),
		Schedules:       make([]domain.HistoricalAppointment, 0, len(schedules)),
		FollowUps:       followUps,
		FetchedAt:       now,
	}

	for _, appointment := range schedules {
		if appointment.Status == domain.HistoricalAppointmentStatusCanceled {
			continue
		}

		history.Schedules = append(history.Schedules, appointment)
		history.AppointmentList = append(history.AppointmentList, domain.HistoryEntry{
			Code: appointment.Code,
			Date: appointment.Date,
		})

		if appointment.FollowUp {
			continue
		}

		if !appointment.Date.After(now) {
			if history.LastAppointment == nil || appointment.Date.After(history.LastAppointment.Date) {
				last := appointment
				history.LastAppointment = &last
			}
		} else {
			if history.NextAppointment == nil || appointment.Date.Before(history.NextAppointment.Date) {
				next := appointment
				history.NextAppointment = &next
			}
		}
	}

	return history
}
