package schedule_resolver_service

import (
	"context"
	"sync"

	"github.com/suchimauz/clinic-availability-resolver/internal/core/domain"
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

type availabilityFetcher struct {
	upstream out.UpstreamSchedulePort
	audit    out.AuditPort
	logger   out.LoggerPort
}

func newAvailabilityFetcher(upstream out.UpstreamSchedulePort, audit out.AuditPort, logger out.LoggerPort) *availabilityFetcher {
	return &availabilityFetcher{
		upstream: upstream,
		audit:    audit,
		logger:   logger.WithModule("AvailabilityFetcher"),
	}
}

// Fetch issues every chunk query concurrently and merges the fulfilled ones.
// Rejected chunks are dropped: for chunked windows partial availability is
// preferable to total failure, and zero fulfilled chunks is an empty result,
// not an error. The single-chunk fast path keeps the upstream error fatal.
// Queries without organization units never reach the upstream, the vendor
// rejects such payloads and an empty unit list means zero slots anyway.
func (f *availabilityFetcher) Fetch(ctx context.Context, queries []domain.AvailabilityQuery) ([]domain.UnitFragment, error) {
	issuable := make([]domain.AvailabilityQuery, 0, len(queries))
	for _, query := range queries {
		if len(query.OrganizationUnits) > 0 {
			issuable = append(issuable, query)
		}
	}
	queries = issuable

	if len(queries) == 0 {
		return nil, nil
	}

	if len(queries) == 1 {
		return f.upstream.ListAvailability(ctx, queries[0])
	}

	// Results are buffered by submission index so the merge is deterministic
	// regardless of completion order
	results := make([][]domain.UnitFragment, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i := range queries {
		wg.Add(1)
		go func(idx int, query domain.AvailabilityQuery) {
			defer wg.Done()

			fragments, err := f.upstream.ListAvailability(ctx, query)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx] = fragments
		}(i, queries[i])
	}
	wg.Wait()

	return f.merge(queries, results, errs), nil
}

// merge aligns fragments on organization-unit identity: a unit's resource
// lists across chunks are concatenated in chunk-submission order, units are
// kept in first-seen order.
func (f *availabilityFetcher) merge(queries []domain.AvailabilityQuery, results [][]domain.UnitFragment, errs []error) []domain.UnitFragment {
	merged := make([]domain.UnitFragment, 0)
	position := make(map[string]int)

	for i, fragments := range results {
		if errs[i] != nil {
			f.logger.Warn("fetcher.chunk.rejected", out.LogFields{
				"chunkIndex": i,
				"fromDay":    queries[i].FromDay,
				"error":      errs[i].Error(),
			})
			f.audit.Emit("availability.chunk_rejected", out.LogFields{
				"chunkIndex": i,
				"fromDay":    queries[i].FromDay,
				"error":      errs[i].Error(),
			})
			continue
		}

		for _, fragment := range fragments {
			if pos, seen := position[fragment.UnitCode]; seen {
				merged[pos].Resources = append(merged[pos].Resources, fragment.Resources...)
				continue
			}
			position[fragment.UnitCode] = len(merged)
			merged = append(merged, fragment)
		}
	}

	f.logger.Debug("fetcher.chunks.merged", out.LogFields{
		"chunks": len(queries),
		"units":  len(merged),
	})

	return merged
}
