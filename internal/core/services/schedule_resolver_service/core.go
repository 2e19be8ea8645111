package schedule_resolver_service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

type ScheduleResolverService struct {
	upstream  out.UpstreamSchedulePort
	entities  out.EntityStorePort
	cachePort out.CachePort
	flowRules out.FlowRulesPort
	audit     out.AuditPort
	logger    out.LoggerPort
	cfg       *config.Config

	builder    *queryBuilder
	fetcher    *availabilityFetcher
	doctors    *doctorResolver
	history    *historyCache
	validator  *interAppointmentValidator
	normalizer *slotNormalizer
	ranker     *appointmentRanker
}

func NewScheduleResolverService(
	upstream out.UpstreamSchedulePort,
	entities out.EntityStorePort,
	cachePort out.CachePort,
	flowRules out.FlowRulesPort,
	audit out.AuditPort,
	logger out.LoggerPort,
	cfg *config.Config,
) *ScheduleResolverService {
	serviceLogger := logger.WithModule("ScheduleResolverService")

	builder := newQueryBuilder(entities, cachePort, cfg, serviceLogger)
	fetcher := newAvailabilityFetcher(upstream, audit, serviceLogger)
	history := newHistoryCache(upstream, cachePort, cfg, serviceLogger)

	return &ScheduleResolverService{
		upstream:   upstream,
		entities:   entities,
		cachePort:  cachePort,
		flowRules:  flowRules,
		audit:      audit,
		logger:     serviceLogger,
		cfg:        cfg,
		builder:    builder,
		fetcher:    fetcher,
		doctors:    newDoctorResolver(entities, builder, fetcher, cfg, serviceLogger),
		history:    history,
		validator:  newInterAppointmentValidator(history, audit, cfg, serviceLogger),
		normalizer: newSlotNormalizer(cfg, serviceLogger),
		ranker:     newAppointmentRanker(serviceLogger),
	}
}

// GetAvailableSchedules is the engine's boundary: filter + patient + windowing
// in, ranked bookable appointments + metadata out.
func (s *ScheduleResolverService) GetAvailableSchedules(ctx context.Context, req domain.ResolveRequest) (*domain.ResolveResult, error) {
	logger := s.logger.WithFields(out.LogFields{
		"requestId": uuid.New().String(),
	})

	logger.Info("resolver.schedules.started", out.LogFields{
		"fromDay":  req.FromDay,
		"untilDay": req.UntilDay,
		"period":   req.Period,
		"sort":     req.Sort,
	})

	// Inter-appointment rule first: it may raise the effective fromDay or
	// produce a per-doctor gap map consumed during normalization
	outcome, err := s.validator.Validate(ctx, req)
	if err != nil {
		logger.Error("resolver.interappointment.failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	metadata := domain.ResolveMetadata{InterAppointmentPeriod: outcome.AppliedPeriod}

	queries, err := s.builder.BuildQueries(ctx, req, outcome.FromDay)
	if err != nil {
		logger.Error("resolver.queries.build_failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("resolver.queries.build_failed: %w", err)
	}

	fragments, err := s.fetcher.Fetch(ctx, queries)
	if err != nil {
		logger.Error("resolver.availability.fetch_failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("resolver.availability.fetch_failed: %w", err)
	}

	if len(fragments) == 0 {
		logger.Info("resolver.schedules.empty", out.LogFields{})
		return &domain.ResolveResult{Schedules: []domain.Appointment{}, Metadata: metadata}, nil
	}

	doctors, err := s.doctors.Resolve(ctx, req, collectDoctorCodes(req.Filter.AppointmentType, fragments))
	if err != nil {
		logger.Error("resolver.doctors.resolve_failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, fmt.Errorf("resolver.doctors.resolve_failed: %w", err)
	}

	index := indexDoctors(GroupByLicense(doctors))

	rawAppointments := s.normalizer.Normalize(fragments, index, req, outcome.DoctorGaps)
	appointments := s.normalizer.Enrich(rawAppointments, index, s.builder.UnitEntities(ctx, req.Filter), req)

	// Flow-engine annotations are best-effort, a failure never aborts resolution
	s.annotate(ctx, logger, appointments)

	ranked := s.ranker.Rank(appointments, req)

	logger.Info("resolver.schedules.completed", out.LogFields{
		"candidates": len(appointments),
		"returned":   len(ranked),
	})

	return &domain.ResolveResult{Schedules: ranked, Metadata: metadata}, nil
}

// GetPatientAppointments returns the minified cached history, refreshing on miss.
func (s *ScheduleResolverService) GetPatientAppointments(ctx context.Context, patientCode string) (*domain.PatientAppointmentHistory, error) {
	history, err := s.history.Load(ctx, patientCode)
	if err != nil {
		s.logger.Error("resolver.patient_history.load_failed", out.LogFields{
			"patientCode": patientCode,
			"error":       err.Error(),
		})
		return nil, fmt.Errorf("resolver.patient_history.load_failed: %w", err)
	}

	return history, nil
}

func (s *ScheduleResolverService) InvalidatePatientHistory(ctx context.Context, patientCode string) error {
	s.history.Invalidate(ctx, patientCode)
	s.logger.Debug("resolver.patient_history.invalidated", out.LogFields{
		"patientCode": patientCode,
	})
	return nil
}

func (s *ScheduleResolverService) annotate(ctx context.Context, logger out.LoggerPort, appointments []domain.Appointment) {
	if s.flowRules == nil {
		return
	}

	for i := range appointments {
		actions, err := s.flowRules.Match(ctx, appointments[i])
		if err != nil {
			logger.Warn("resolver.flowrules.annotation_failed", out.LogFields{
				"appointmentCode": appointments[i].Code,
				"error":           err.Error(),
			})
			s.audit.Emit("flowrules.annotation_failed", out.LogFields{
				"appointmentCode": appointments[i].Code,
				"error":           err.Error(),
			})
			continue
		}
		appointments[i].Actions = actions
	}
}
