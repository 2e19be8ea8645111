package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/suchimauz/clinic-availability-resolver/internal/config"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/in"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/services/schedule_resolver_service"
)

type ScheduleController struct {
	useCase  in.ScheduleResolverUseCase
	entities out.EntityStorePort
	cfg      *config.Config
	logger   out.LoggerPort
}

func NewScheduleController(
	useCase in.ScheduleResolverUseCase,
	entities out.EntityStorePort,
	cfg *config.Config,
	logger out.LoggerPort,
) *ScheduleController {
	return &ScheduleController{
		useCase:  useCase,
		entities: entities,
		cfg:      cfg,
		logger:   logger.WithModule("ScheduleController"),
	}
}

func (c *ScheduleController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	api.Use(c.requestID(), c.basicAuth())
	{
		api.GET("/schedules/available", c.getAvailableSchedules)
		api.GET("/patients/:patientCode/appointments", c.getPatientAppointments)
		api.POST("/patients/:patientCode/history/invalidate", c.invalidatePatientHistory)
	}
}

func (c *ScheduleController) getAvailableSchedules(ctx *gin.Context) {
	req, err := c.buildResolveRequest(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := c.useCase.GetAvailableSchedules(ctx.Request.Context(), *req)
	if err != nil {
		if errors.Is(err, schedule_resolver_service.ErrInterAppointmentValidation) {
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.logger.Error("http.schedules.available.failed", out.LogFields{
			"requestId": ctx.GetString("requestId"),
			"error":     err.Error(),
		})
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func (c *ScheduleController) getPatientAppointments(ctx *gin.Context) {
	patientCode := ctx.Param("patientCode")
	if patientCode == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Patient code is required"})
		return
	}

	history, err := c.useCase.GetPatientAppointments(ctx.Request.Context(), patientCode)
	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, history)
}

func (c *ScheduleController) invalidatePatientHistory(ctx *gin.Context) {
	patientCode := ctx.Param("patientCode")
	if patientCode == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Patient code is required"})
		return
	}

	if err := c.useCase.InvalidatePatientHistory(ctx.Request.Context(), patientCode); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"invalidated": patientCode})
}

// Filter query params resolved through the entity store; an unknown code is a
// client error, not an empty result.
var filterParams = []struct {
	param string
	kind  domain.EntityKind
	bind  func(f *domain.CorrelationFilter, e *domain.ReferenceEntity)
}{
	{"insurance", domain.EntityKindInsurance, func(f *domain.CorrelationFilter, e *domain.ReferenceEntity) { f.Insurance = e }},
	{"insurancePlan", domain.EntityKindInsurancePlan, func(f *domain.CorrelationFilter, e *domain.ReferenceEntity) { f.InsurancePlan = e }},
	{"speciality", domain.EntityKindSpeciality, func(f *domain.CorrelationFilter, e *domain.ReferenceEntity) { f.Speciality = e }},
	{"procedure", domain.EntityKindProcedure, func(f *domain.CorrelationFilter, e *domain.ReferenceEntity) { f.Procedure = e }},
	{"doctor", domain.EntityKindDoctor, func(f *domain.CorrelationFilter, e *domain.ReferenceEntity) { f.Doctor = e }},
	{"organizationUnit", domain.EntityKindOrganizationUnit, func(f *domain.CorrelationFilter, e *domain.ReferenceEntity) { f.OrganizationUnit = e }},
	{"appointmentType", domain.EntityKindAppointmentType, func(f *domain.CorrelationFilter, e *domain.ReferenceEntity) { f.AppointmentType = e }},
	{"typeOfService", domain.EntityKindTypeOfService, func(f *domain.CorrelationFilter, e *domain.ReferenceEntity) { f.TypeOfService = e }},
	{"occupationArea", domain.EntityKindOccupationArea, func(f *domain.CorrelationFilter, e *domain.ReferenceEntity) { f.OccupationArea = e }},
}

func (c *ScheduleController) buildResolveRequest(ctx *gin.Context) (*domain.ResolveRequest, error) {
	req := &domain.ResolveRequest{
		FromDay:  0,
		UntilDay: 30,
		Limit:    0,
		Sort:     domain.SortMethodDefault,
	}

	for _, fp := range filterParams {
		code := ctx.Query(fp.param)
		if code == "" {
			continue
		}
		entity, err := c.entities.GetEntityByCode(ctx.Request.Context(), fp.kind, code)
		if err != nil {
			return nil, err
		}
		if entity == nil || !entity.Active {
			return nil, errors.New("unknown " + fp.param + " code: " + code)
		}
		fp.bind(&req.Filter, entity)
	}

	if patientCode := ctx.Query("patientCode"); patientCode != "" {
		patient := &domain.Patient{
			Code: patientCode,
			Sex:  ctx.Query("patientSex"),
		}
		if birthDate := ctx.Query("patientBirthDate"); birthDate != "" {
			parsed, err := time.ParseInLocation("2006-01-02", birthDate, time.Local)
			if err != nil {
				return nil, errors.New("invalid patientBirthDate format, expected YYYY-MM-DD")
			}
			patient.BirthDate = parsed
		}
		req.Patient = patient
	}

	var err error
	if req.FromDay, err = intQuery(ctx, "fromDay", req.FromDay); err != nil {
		return nil, err
	}
	if req.UntilDay, err = intQuery(ctx, "untilDay", req.UntilDay); err != nil {
		return nil, err
	}
	if req.FromDay < 0 || req.UntilDay < req.FromDay {
		return nil, errors.New("invalid day range")
	}
	if req.Limit, err = intQuery(ctx, "limit", req.Limit); err != nil {
		return nil, err
	}

	switch period := domain.PeriodOfDay(ctx.Query("period")); period {
	case domain.PeriodOfDayAny, domain.PeriodOfDayMorning, domain.PeriodOfDayAfternoon, domain.PeriodOfDayEvening:
		req.Period = period
	default:
		return nil, errors.New("unknown period: " + string(period))
	}

	if sort := ctx.Query("sort"); sort != "" {
		switch method := domain.SortMethod(sort); method {
		case domain.SortMethodDefault, domain.SortMethodSequential,
			domain.SortMethodFirstEachPeriodDay, domain.SortMethodFirstEachHourDay,
			domain.SortMethodFirstEachAnyPeriodDay, domain.SortMethodCombineDatePeriodByOrganization:
			req.Sort = method
		default:
			return nil, errors.New("unknown sort method: " + sort)
		}
	}

	req.Randomize = ctx.Query("randomize") == "true"
	req.IgnoreAppointmentType = ctx.Query("ignoreAppointmentType") == "true"

	if ignored := ctx.Query("ignoredCodes"); ignored != "" {
		req.IgnoredCodes = strings.Split(ignored, ",")
	}

	return req, nil
}

func intQuery(ctx *gin.Context, name string, fallback int) (int, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name + ": " + raw)
	}
	return value, nil
}

func (c *ScheduleController) requestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestID := ctx.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx.Set("requestId", requestID)
		ctx.Header("X-Request-Id", requestID)
		ctx.Next()
	}
}

func (c *ScheduleController) basicAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		username, password, hasAuth := ctx.Request.BasicAuth()
		if !hasAuth {
			ctx.Header("WWW-Authenticate", "Basic realm=Authorization Required")
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		for _, client := range c.cfg.Auth.BasicClients {
			if subtle.ConstantTimeCompare([]byte(username), []byte(client.Username)) == 1 &&
				subtle.ConstantTimeCompare([]byte(password), []byte(client.Password)) == 1 {
				ctx.Next()
				return
			}
		}

		ctx.Header("WWW-Authenticate", "Basic realm=Authorization Required")
		ctx.AbortWithStatus(http.StatusUnauthorized)
	}
}
