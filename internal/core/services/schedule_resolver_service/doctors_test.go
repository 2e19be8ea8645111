package schedule_resolver_service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
)

func TestGroupByLicenseMergesSiblings(t *testing.T) {
	doctors := []domain.ReferenceEntity{
		doctorEntity("A", "12345"),
		doctorEntity("B", "12345"),
		doctorEntity("C", "67890"),
	}

	grouped := GroupByLicense(doctors)
	require.Len(t, grouped, 2)

	assert.Equal(t, "A", grouped[0].Code)
	assert.Equal(t, "A,B", grouped[0].Handle)
	assert.Equal(t, "C", grouped[1].Code)
	assert.Equal(t, "C", grouped[1].Handle)
}

func TestGroupByLicenseIsIdempotent(t *testing.T) {
	doctors := []domain.ReferenceEntity{
		doctorEntity("A", "12345"),
		doctorEntity("B", "12345"),
	}

	once := GroupByLicense(doctors)
	twice := GroupByLicense(once)

	assert.Equal(t, once, twice)
}

func TestGroupByLicensePassesThroughUnlicensed(t *testing.T) {
	doctors := []domain.ReferenceEntity{
		doctorEntity("A", ""),
		doctorEntity("B", ""),
	}

	grouped := GroupByLicense(doctors)
	require.Len(t, grouped, 2)
	assert.Empty(t, grouped[0].Handle)
	assert.Empty(t, grouped[1].Handle)
}

func TestMatchesDoctorAcrossHandleMembers(t *testing.T) {
	grouped := GroupByLicense([]domain.ReferenceEntity{
		doctorEntity("A", "12345"),
		doctorEntity("B", "12345"),
	})
	doctor := &grouped[0]

	// Slots registered under either sibling code belong to the same doctor
	assert.True(t, MatchesDoctor(doctor, "A"))
	assert.True(t, MatchesDoctor(doctor, "B"))
	assert.False(t, MatchesDoctor(doctor, "C"))

	assert.True(t, MatchesDoctor(nil, "anything"))
}

func TestIndexDoctorsResolvesEveryMember(t *testing.T) {
	grouped := GroupByLicense([]domain.ReferenceEntity{
		doctorEntity("A", "12345"),
		doctorEntity("B", "12345"),
		doctorEntity("C", ""),
	})

	index := indexDoctors(grouped)

	require.Contains(t, index, "A")
	require.Contains(t, index, "B")
	require.Contains(t, index, "C")
	assert.Same(t, index["A"], index["B"])
	assert.NotSame(t, index["A"], index["C"])
}

func TestCollectDoctorCodesDeduplicates(t *testing.T) {
	now := time.Now()
	fragments := []domain.UnitFragment{
		unitFragment("U1",
			resourceWithSlots("R1", openSlot("A", now), openSlot("A", now.Add(time.Hour))),
			resourceWithSlots("R2", openSlot("B", now)),
		),
	}

	codes := collectDoctorCodes(nil, fragments)
	assert.Equal(t, []string{"A", "B"}, codes)
}

func TestCollectDoctorCodesUsesResourceDoctorForExams(t *testing.T) {
	now := time.Now()
	resource := resourceWithSlots("R1", openSlot("TIME-DOC", now))
	resource.ResponsibleDoctorCode = "RES-DOC"

	examType := &domain.ReferenceEntity{
		Code:   "exam-1",
		Kind:   domain.EntityKindAppointmentType,
		Params: domain.EntityParams{ScheduleKind: domain.ScheduleKindExam},
	}

	codes := collectDoctorCodes(examType, []domain.UnitFragment{unitFragment("U1", resource)})
	assert.Equal(t, []string{"RES-DOC"}, codes)

	codes = collectDoctorCodes(nil, []domain.UnitFragment{unitFragment("U1", resource)})
	assert.Equal(t, []string{"TIME-DOC"}, codes)
}

func TestResolveDirectWithKnownUnit(t *testing.T) {
	cfg := testConfig()
	entities := &stubEntityStore{
		activeByQuery: func(ctx context.Context, kind domain.EntityKind, query map[string]string) ([]domain.ReferenceEntity, error) {
			require.Equal(t, domain.EntityKindDoctor, kind)
			require.Equal(t, "U1", query["organizationUnit"])
			return []domain.ReferenceEntity{doctorEntity("A", "12345")}, nil
		},
	}
	builder := newQueryBuilder(entities, nil, cfg, &nopLogger{})
	fetcher := newAvailabilityFetcher(&stubUpstream{}, &stubAudit{}, &nopLogger{})
	resolver := newDoctorResolver(entities, builder, fetcher, cfg, &nopLogger{})

	unit := &domain.ReferenceEntity{Code: "U1", Kind: domain.EntityKindOrganizationUnit}
	req := domain.ResolveRequest{Filter: domain.CorrelationFilter{OrganizationUnit: unit}}

	doctors, err := resolver.Resolve(context.Background(), req, []string{"ignored"})
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "A", doctors[0].Code)
}

func TestResolveDerivedFromRawCodes(t *testing.T) {
	cfg := testConfig()
	entities := &stubEntityStore{
		validByCode: func(ctx context.Context, kind domain.EntityKind, codes []string) ([]domain.ReferenceEntity, error) {
			require.Equal(t, domain.EntityKindDoctor, kind)
			require.Equal(t, []string{"A", "B"}, codes)
			return []domain.ReferenceEntity{doctorEntity("A", "12345")}, nil
		},
	}
	builder := newQueryBuilder(entities, nil, cfg, &nopLogger{})
	fetcher := newAvailabilityFetcher(&stubUpstream{}, &stubAudit{}, &nopLogger{})
	resolver := newDoctorResolver(entities, builder, fetcher, cfg, &nopLogger{})

	doctors, err := resolver.Resolve(context.Background(), domain.ResolveRequest{}, []string{"A", "B"})
	require.NoError(t, err)
	require.Len(t, doctors, 1)
}

func TestResolveProbesWhenNoCodesAndNoUnit(t *testing.T) {
	cfg := testConfig()
	now := time.Now()

	var probed *domain.AvailabilityQuery
	upstream := &stubUpstream{
		listAvailability: func(ctx context.Context, query domain.AvailabilityQuery) ([]domain.UnitFragment, error) {
			probed = &query
			return []domain.UnitFragment{
				unitFragment("U1", resourceWithSlots("R1", openSlot("A", now))),
			}, nil
		},
	}
	entities := &stubEntityStore{
		activeByQuery: func(ctx context.Context, kind domain.EntityKind, query map[string]string) ([]domain.ReferenceEntity, error) {
			return []domain.ReferenceEntity{{Code: "U1", Kind: kind, Active: true}}, nil
		},
		validByCode: func(ctx context.Context, kind domain.EntityKind, codes []string) ([]domain.ReferenceEntity, error) {
			require.Equal(t, []string{"A"}, codes)
			return []domain.ReferenceEntity{doctorEntity("A", "12345")}, nil
		},
	}
	builder := newQueryBuilder(entities, nil, cfg, &nopLogger{})
	fetcher := newAvailabilityFetcher(upstream, &stubAudit{}, &nopLogger{})
	resolver := newDoctorResolver(entities, builder, fetcher, cfg, &nopLogger{})

	doctors, err := resolver.Resolve(context.Background(), domain.ResolveRequest{FromDay: 2}, nil)
	require.NoError(t, err)
	require.Len(t, doctors, 1)

	// The probe is bounded by the configured window and limit
	require.NotNil(t, probed)
	assert.Equal(t, 2, probed.FromDay)
	assert.Equal(t, cfg.Integration.ProbeWindowDays, probed.SpanDays)
	assert.Equal(t, cfg.Integration.ProbeLimit, probed.Limit)
}
