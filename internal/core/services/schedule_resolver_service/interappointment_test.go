package schedule_resolver_service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
)

func newValidator(cfg *config.Config, upstream *stubUpstream, auditSink *stubAudit) *interAppointmentValidator {
	history := newHistoryCache(upstream, newMemoryCache(), cfg, &nopLogger{})
	return newInterAppointmentValidator(history, auditSink, cfg, &nopLogger{})
}

func patientRequest(insurance *domain.ReferenceEntity) domain.ResolveRequest {
	return domain.ResolveRequest{
		Filter:   domain.CorrelationFilter{Insurance: insurance},
		Patient:  &domain.Patient{Code: "P1"},
		FromDay:  0,
		UntilDay: 30,
	}
}

func historyWith(appointments ...domain.HistoricalAppointment) *stubUpstream {
	return &stubUpstream{
		listSchedules: func(ctx context.Context, patientCode string) ([]domain.HistoricalAppointment, error) {
			return appointments, nil
		},
		listFollowUps: func(ctx context.Context, patientCode string) ([]domain.FollowUpWindow, error) {
			return nil, nil
		},
	}
}

func TestValidateRaisesFromDayByInsurancePeriod(t *testing.T) {
	cfg := testConfig()
	insurance := &domain.ReferenceEntity{
		Code:   "INS1",
		Kind:   domain.EntityKindInsurance,
		Params: domain.EntityParams{InterAppointmentPeriod: 30},
	}

	// Last comparable appointment 10 days ago: gap = 30 - 10 + 1 = 21
	upstream := historyWith(domain.HistoricalAppointment{
		Code:          "H1",
		Date:          time.Now().AddDate(0, 0, -10),
		InsuranceCode: "INS1",
	})
	validator := newValidator(cfg, upstream, &stubAudit{})

	outcome, err := validator.Validate(context.Background(), patientRequest(insurance))
	require.NoError(t, err)

	assert.Equal(t, 21, outcome.FromDay)
	assert.Equal(t, 21, outcome.AppliedPeriod)
	assert.Nil(t, outcome.DoctorGaps)
}

func TestValidateKeepsCallerFromDayWhenGapIsSmaller(t *testing.T) {
	cfg := testConfig()
	insurance := &domain.ReferenceEntity{
		Code:   "INS1",
		Kind:   domain.EntityKindInsurance,
		Params: domain.EntityParams{InterAppointmentPeriod: 30},
	}

	// 40 days ago: gap = 30 - 40 + 1 < 0 -> 0
	upstream := historyWith(domain.HistoricalAppointment{
		Code:          "H1",
		Date:          time.Now().AddDate(0, 0, -40),
		InsuranceCode: "INS1",
	})
	validator := newValidator(cfg, upstream, &stubAudit{})

	req := patientRequest(insurance)
	req.FromDay = 5

	outcome, err := validator.Validate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 5, outcome.FromDay)
	assert.Zero(t, outcome.AppliedPeriod)
}

func TestValidateUsesDefaultPeriodWithoutInsuranceParams(t *testing.T) {
	cfg := testConfig()
	cfg.Integration.DefaultPeriodDays = 20
	insurance := &domain.ReferenceEntity{Code: "INS1", Kind: domain.EntityKindInsurance}

	upstream := historyWith(domain.HistoricalAppointment{
		Code:          "H1",
		Date:          time.Now().AddDate(0, 0, -10),
		InsuranceCode: "INS1",
	})
	validator := newValidator(cfg, upstream, &stubAudit{})

	outcome, err := validator.Validate(context.Background(), patientRequest(insurance))
	require.NoError(t, err)

	// gap = 20 - 10 + 1 = 11
	assert.Equal(t, 11, outcome.FromDay)
}

func TestValidateFollowUpWindowRemainingWins(t *testing.T) {
	cfg := testConfig()
	insurance := &domain.ReferenceEntity{
		Code:   "INS1",
		Kind:   domain.EntityKindInsurance,
		Params: domain.EntityParams{InterAppointmentPeriod: 10},
	}

	upstream := historyWith(domain.HistoricalAppointment{
		Code:          "H1",
		Date:          time.Now().AddDate(0, 0, -5),
		InsuranceCode: "INS1",
	})
	// An active follow-up window outlasting the insurance gap
	upstream.listFollowUps = func(ctx context.Context, patientCode string) ([]domain.FollowUpWindow, error) {
		return []domain.FollowUpWindow{
			{InsuranceCode: "INS1", Until: time.Now().AddDate(0, 0, 15)},
		}, nil
	}
	validator := newValidator(cfg, upstream, &stubAudit{})

	outcome, err := validator.Validate(context.Background(), patientRequest(insurance))
	require.NoError(t, err)

	// insurance gap = 10 - 5 + 1 = 6, follow-up remaining = 15, max wins
	assert.Equal(t, 15, outcome.FromDay)
}

func TestValidateSkipsWhenDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Integration.InterAppointmentEnabled = false
	auditSink := &stubAudit{}
	validator := newValidator(cfg, &stubUpstream{}, auditSink)

	// No patient at all, which would otherwise be an error
	outcome, err := validator.Validate(context.Background(), domain.ResolveRequest{FromDay: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.FromDay)
	assert.True(t, auditSink.emitted("interappointment.skipped"))
}

func TestValidateSkipsFollowUpAppointmentTypes(t *testing.T) {
	cfg := testConfig()
	validator := newValidator(cfg, &stubUpstream{}, &stubAudit{})

	followUpType := &domain.ReferenceEntity{
		Code:   "ret-1",
		Kind:   domain.EntityKindAppointmentType,
		Params: domain.EntityParams{ScheduleKind: domain.ScheduleKindFollowUp},
	}

	outcome, err := validator.Validate(context.Background(), domain.ResolveRequest{
		Filter: domain.CorrelationFilter{AppointmentType: followUpType},
	})
	require.NoError(t, err)
	assert.Zero(t, outcome.FromDay)
}

func TestValidateMissingPatientIsSentinelError(t *testing.T) {
	validator := newValidator(testConfig(), &stubUpstream{}, &stubAudit{})

	_, err := validator.Validate(context.Background(), domain.ResolveRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInterAppointmentValidation)
}

func TestValidateUnfetchableHistoryIsSentinelError(t *testing.T) {
	upstream := &stubUpstream{
		listSchedules: func(ctx context.Context, patientCode string) ([]domain.HistoricalAppointment, error) {
			return nil, errors.New("vendor down")
		},
	}
	auditSink := &stubAudit{}
	validator := newValidator(testConfig(), upstream, auditSink)

	_, err := validator.Validate(context.Background(), patientRequest(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInterAppointmentValidation)
	assert.True(t, auditSink.emitted("interappointment.history_miss"))
}

func TestValidateDoctorScopedBuildsGapMap(t *testing.T) {
	cfg := testConfig()
	cfg.Integration.InterAppointmentStrategy = config.StrategyDoctor

	upstream := historyWith(
		domain.HistoricalAppointment{
			Code:       "H1",
			Date:       time.Now().AddDate(0, 0, -10),
			DoctorCode: "A",
		},
		domain.HistoricalAppointment{
			Code:       "H2",
			Date:       time.Now().AddDate(0, 0, -40),
			DoctorCode: "B",
		},
	)
	validator := newValidator(cfg, upstream, &stubAudit{})

	outcome, err := validator.Validate(context.Background(), patientRequest(nil))
	require.NoError(t, err)

	// Doctor A still restricted (30 - 10 + 1 = 21), doctor B's gap elapsed
	require.NotNil(t, outcome.DoctorGaps)
	assert.Equal(t, 21, outcome.DoctorGaps["A"])
	assert.NotContains(t, outcome.DoctorGaps, "B")
	assert.Zero(t, outcome.FromDay)
}

func TestValidateDoctorScopedWithPinnedDoctorIsGlobal(t *testing.T) {
	cfg := testConfig()
	cfg.Integration.InterAppointmentStrategy = config.StrategyDoctor

	upstream := historyWith(domain.HistoricalAppointment{
		Code:       "H1",
		Date:       time.Now().AddDate(0, 0, -10),
		DoctorCode: "A",
	})
	validator := newValidator(cfg, upstream, &stubAudit{})

	pinned := doctorEntity("A", "12345")
	req := patientRequest(nil)
	req.Filter.Doctor = &pinned

	outcome, err := validator.Validate(context.Background(), req)
	require.NoError(t, err)

	assert.Nil(t, outcome.DoctorGaps)
	assert.Equal(t, 21, outcome.FromDay)
}

func TestValidateIgnoredCodesAreExcluded(t *testing.T) {
	cfg := testConfig()

	// The only comparable appointment is the one being rescheduled away from
	upstream := historyWith(domain.HistoricalAppointment{
		Code: "H1",
		Date: time.Now().AddDate(0, 0, -5),
	})
	validator := newValidator(cfg, upstream, &stubAudit{})

	req := patientRequest(nil)
	req.IgnoredCodes = []string{"H1"}

	outcome, err := validator.Validate(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, outcome.FromDay)
}

func TestMostRecentComparableTieBreaksOnCode(t *testing.T) {
	date := time.Now().AddDate(0, 0, -3)
	candidates := []domain.HistoricalAppointment{
		{Code: "20260810100000", Date: date},
		{Code: "20260810110000", Date: date},
		{Code: "20260801090000", Date: date.AddDate(0, 0, -9)},
	}

	best := mostRecentComparable(candidates)
	require.NotNil(t, best)
	assert.Equal(t, "20260810110000", best.Code)
}
