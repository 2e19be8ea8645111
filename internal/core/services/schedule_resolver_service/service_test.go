package schedule_resolver_service

import (
	"context"
	"sync"
	"time"

	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/json_types"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

// Test doubles shared by the package tests.

type nopLogger struct{}

func (l *nopLogger) Debug(event string, fields out.LogFields) {}
func (l *nopLogger) Info(event string, fields out.LogFields)  {}
func (l *nopLogger) Warn(event string, fields out.LogFields)  {}
func (l *nopLogger) Error(event string, fields out.LogFields) {}

func (l *nopLogger) WithFields(fields out.LogFields) out.LoggerPort { return l }
func (l *nopLogger) WithModule(module string) out.LoggerPort        { return l }

type stubAudit struct {
	mu     sync.Mutex
	events []string
}

func (a *stubAudit) Emit(event string, fields out.LogFields) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *stubAudit) emitted(event string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.events {
		if e == event {
			return true
		}
	}
	return false
}

type stubUpstream struct {
	listAvailability func(ctx context.Context, query domain.AvailabilityQuery) ([]domain.UnitFragment, error)
	listSchedules    func(ctx context.Context, patientCode string) ([]domain.HistoricalAppointment, error)
	listFollowUps    func(ctx context.Context, patientCode string) ([]domain.FollowUpWindow, error)
}

func (u *stubUpstream) ListAvailability(ctx context.Context, query domain.AvailabilityQuery) ([]domain.UnitFragment, error) {
	if u.listAvailability == nil {
		return nil, nil
	}
	return u.listAvailability(ctx, query)
}

func (u *stubUpstream) ListPatientSchedules(ctx context.Context, patientCode string) ([]domain.HistoricalAppointment, error) {
	if u.listSchedules == nil {
		return nil, nil
	}
	return u.listSchedules(ctx, patientCode)
}

func (u *stubUpstream) ListPatientFollowUpSchedules(ctx context.Context, patientCode string) ([]domain.FollowUpWindow, error) {
	if u.listFollowUps == nil {
		return nil, nil
	}
	return u.listFollowUps(ctx, patientCode)
}

type stubEntityStore struct {
	validByCode   func(ctx context.Context, kind domain.EntityKind, codes []string) ([]domain.ReferenceEntity, error)
	activeByQuery func(ctx context.Context, kind domain.EntityKind, query map[string]string) ([]domain.ReferenceEntity, error)
	byCode        func(ctx context.Context, kind domain.EntityKind, code string) (*domain.ReferenceEntity, error)
}

func (s *stubEntityStore) GetValidEntitiesByCode(ctx context.Context, kind domain.EntityKind, codes []string) ([]domain.ReferenceEntity, error) {
	if s.validByCode == nil {
		return nil, nil
	}
	return s.validByCode(ctx, kind, codes)
}

func (s *stubEntityStore) GetActiveEntities(ctx context.Context, kind domain.EntityKind, query map[string]string) ([]domain.ReferenceEntity, error) {
	if s.activeByQuery == nil {
		return nil, nil
	}
	return s.activeByQuery(ctx, kind, query)
}

func (s *stubEntityStore) GetEntityByCode(ctx context.Context, kind domain.EntityKind, code string) (*domain.ReferenceEntity, error) {
	if s.byCode == nil {
		return nil, nil
	}
	return s.byCode(ctx, kind, code)
}

// memoryCache is an unbounded CachePort for tests, TTLs are ignored.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key domain.CacheKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, exists := c.entries[key.String()]
	return value, exists
}

func (c *memoryCache) Set(ctx context.Context, key domain.CacheKey, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = value
}

func (c *memoryCache) Delete(ctx context.Context, key domain.CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key.String())
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Integration.Code = "clinic"
	cfg.Integration.InterAppointmentEnabled = true
	cfg.Integration.InterAppointmentStrategy = config.StrategyInsurance
	cfg.Integration.DefaultPeriodDays = 30
	cfg.Integration.ProbeWindowDays = 7
	cfg.Integration.ProbeLimit = 30
	cfg.Integration.CanCancel = true
	cfg.Integration.CanConfirm = true
	cfg.Integration.CanReschedule = true
	cfg.Cache.Enabled = true
	cfg.Cache.HistoryTTLSeconds = 300
	cfg.Cache.UnitsTTLSeconds = 1800
	return cfg
}

func doctorEntity(code, license string) domain.ReferenceEntity {
	return domain.ReferenceEntity{
		Code:   code,
		Kind:   domain.EntityKindDoctor,
		Name:   "Doctor " + code,
		Active: true,
		Params: domain.EntityParams{LicenseNumber: license},
	}
}

func unitFragment(unitCode string, resources ...domain.AvailabilityResource) domain.UnitFragment {
	return domain.UnitFragment{
		UnitCode:  unitCode,
		UnitName:  "Unit " + unitCode,
		Resources: resources,
	}
}

func openSlot(doctorCode string, at time.Time) domain.AvailabilityTime {
	return domain.AvailabilityTime{
		Time:                  json_types.DateTime{Date: at},
		DurationMinutes:       20,
		Status:                "open",
		ResponsibleDoctorCode: doctorCode,
	}
}

func resourceWithSlots(code string, slots ...domain.AvailabilityTime) domain.AvailabilityResource {
	day := domain.AvailabilityDay{Times: slots}
	if len(slots) > 0 {
		day.Date = json_types.Date{Date: slots[0].Time.Date}
	}
	return domain.AvailabilityResource{
		Code:        code,
		Description: "Agenda " + code,
		Days:        []domain.AvailabilityDay{day},
	}
}
