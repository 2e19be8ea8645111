package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/services/schedule_resolver_service"
)

type nopLogger struct{}

func (l *nopLogger) Debug(event string, fields out.LogFields) {}
func (l *nopLogger) Info(event string, fields out.LogFields)  {}
func (l *nopLogger) Warn(event string, fields out.LogFields)  {}
func (l *nopLogger) Error(event string, fields out.LogFields) {}

func (l *nopLogger) WithFields(fields out.LogFields) out.LoggerPort { return l }
func (l *nopLogger) WithModule(module string) out.LoggerPort        { return l }

type stubUseCase struct {
	getAvailable func(ctx context.Context, req domain.ResolveRequest) (*domain.ResolveResult, error)
	getHistory   func(ctx context.Context, patientCode string) (*domain.PatientAppointmentHistory, error)
	invalidate   func(ctx context.Context, patientCode string) error
}

func (u *stubUseCase) GetAvailableSchedules(ctx context.Context, req domain.ResolveRequest) (*domain.ResolveResult, error) {
	if u.getAvailable == nil {
		return &domain.ResolveResult{Schedules: []domain.Appointment{}}, nil
	}
	return u.getAvailable(ctx, req)
}

func (u *stubUseCase) GetPatientAppointments(ctx context.Context, patientCode string) (*domain.PatientAppointmentHistory, error) {
	if u.getHistory == nil {
		return &domain.PatientAppointmentHistory{PatientCode: patientCode}, nil
	}
	return u.getHistory(ctx, patientCode)
}

func (u *stubUseCase) InvalidatePatientHistory(ctx context.Context, patientCode string) error {
	if u.invalidate == nil {
		return nil
	}
	return u.invalidate(ctx, patientCode)
}

type stubEntityStore struct {
	byCode func(ctx context.Context, kind domain.EntityKind, code string) (*domain.ReferenceEntity, error)
}

func (s *stubEntityStore) GetValidEntitiesByCode(ctx context.Context, kind domain.EntityKind, codes []string) ([]domain.ReferenceEntity, error) {
	return nil, nil
}

func (s *stubEntityStore) GetActiveEntities(ctx context.Context, kind domain.EntityKind, query map[string]string) ([]domain.ReferenceEntity, error) {
	return nil, nil
}

func (s *stubEntityStore) GetEntityByCode(ctx context.Context, kind domain.EntityKind, code string) (*domain.ReferenceEntity, error) {
	if s.byCode == nil {
		return nil, nil
	}
	return s.byCode(ctx, kind, code)
}

func testRouter(useCase *stubUseCase, entities *stubEntityStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Auth.BasicClients = []config.ConfigBasicClient{
		{Username: "client", Password: "secret"},
	}

	router := gin.New()
	controller := NewScheduleController(useCase, entities, cfg, &nopLogger{})
	controller.RegisterRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, target string, authenticated bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if authenticated {
		req.SetBasicAuth("client", "secret")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestGetAvailableSchedulesRequiresAuth(t *testing.T) {
	router := testRouter(&stubUseCase{}, &stubEntityStore{})

	recorder := doRequest(router, http.MethodGet, "/api/v1/schedules/available", false)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestGetAvailableSchedulesRejectsBadCredentials(t *testing.T) {
	router := testRouter(&stubUseCase{}, &stubEntityStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedules/available", nil)
	req.SetBasicAuth("client", "wrong")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestGetAvailableSchedulesResolvesFilterEntities(t *testing.T) {
	var captured domain.ResolveRequest
	useCase := &stubUseCase{
		getAvailable: func(ctx context.Context, req domain.ResolveRequest) (*domain.ResolveResult, error) {
			captured = req
			return &domain.ResolveResult{Schedules: []domain.Appointment{}}, nil
		},
	}
	entities := &stubEntityStore{
		byCode: func(ctx context.Context, kind domain.EntityKind, code string) (*domain.ReferenceEntity, error) {
			return &domain.ReferenceEntity{Code: code, Kind: kind, Active: true}, nil
		},
	}
	router := testRouter(useCase, entities)

	recorder := doRequest(router, http.MethodGet,
		"/api/v1/schedules/available?insurance=INS1&speciality=SPEC1&patientCode=P1&fromDay=2&untilDay=16&sort=sequential&limit=10",
		true)
	require.Equal(t, http.StatusOK, recorder.Code)

	require.NotNil(t, captured.Filter.Insurance)
	assert.Equal(t, "INS1", captured.Filter.Insurance.Code)
	require.NotNil(t, captured.Filter.Speciality)
	require.NotNil(t, captured.Patient)
	assert.Equal(t, "P1", captured.Patient.Code)
	assert.Equal(t, 2, captured.FromDay)
	assert.Equal(t, 16, captured.UntilDay)
	assert.Equal(t, domain.SortMethodSequential, captured.Sort)
	assert.Equal(t, 10, captured.Limit)
}

func TestGetAvailableSchedulesUnknownEntityCodeIs400(t *testing.T) {
	entities := &stubEntityStore{
		byCode: func(ctx context.Context, kind domain.EntityKind, code string) (*domain.ReferenceEntity, error) {
			return nil, nil
		},
	}
	router := testRouter(&stubUseCase{}, entities)

	recorder := doRequest(router, http.MethodGet, "/api/v1/schedules/available?insurance=NOPE", true)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetAvailableSchedulesInvalidRangeIs400(t *testing.T) {
	router := testRouter(&stubUseCase{}, &stubEntityStore{})

	recorder := doRequest(router, http.MethodGet, "/api/v1/schedules/available?fromDay=10&untilDay=5", true)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetAvailableSchedulesUnknownSortIs400(t *testing.T) {
	router := testRouter(&stubUseCase{}, &stubEntityStore{})

	recorder := doRequest(router, http.MethodGet, "/api/v1/schedules/available?sort=chaotic", true)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetAvailableSchedulesValidationFailureIs422(t *testing.T) {
	useCase := &stubUseCase{
		getAvailable: func(ctx context.Context, req domain.ResolveRequest) (*domain.ResolveResult, error) {
			return nil, schedule_resolver_service.ErrInterAppointmentValidation
		},
	}
	router := testRouter(useCase, &stubEntityStore{})

	recorder := doRequest(router, http.MethodGet, "/api/v1/schedules/available", true)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestGetPatientAppointments(t *testing.T) {
	router := testRouter(&stubUseCase{}, &stubEntityStore{})

	recorder := doRequest(router, http.MethodGet, "/api/v1/patients/P1/appointments", true)
	require.Equal(t, http.StatusOK, recorder.Code)

	var history domain.PatientAppointmentHistory
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &history))
	assert.Equal(t, "P1", history.PatientCode)
}

func TestInvalidatePatientHistory(t *testing.T) {
	invalidated := ""
	useCase := &stubUseCase{
		invalidate: func(ctx context.Context, patientCode string) error {
			invalidated = patientCode
			return nil
		},
	}
	router := testRouter(useCase, &stubEntityStore{})

	recorder := doRequest(router, http.MethodPost, "/api/v1/patients/P1/history/invalidate", true)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "P1", invalidated)
}

func TestRequestIDHeaderEchoed(t *testing.T) {
	router := testRouter(&stubUseCase{}, &stubEntityStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/P1/appointments", nil)
	req.SetBasicAuth("client", "secret")
	req.Header.Set("X-Request-Id", "req-42")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, "req-42", recorder.Header().Get("X-Request-Id"))
}
