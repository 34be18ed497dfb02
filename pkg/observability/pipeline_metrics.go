package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCommitsTotal     = "relfang.pipeline.commits.total"
	metricContributorsTot  = "relfang.pipeline.contributors.total"
	metricLookupDuration   = "relfang.lookup.duration.seconds"
	metricHandlesTotal     = "relfang.lookup.handles.total"
	metricCacheHitsTotal   = "relfang.lookup.cache.hits.total"
	metricCacheMissesTotal = "relfang.lookup.cache.misses.total"

	attrCache = "cache"

	cacheHandle = "handle"
)

// PipelineMetrics holds OTel instruments for release-notes pipeline metrics.
type PipelineMetrics struct {
	commitsTotal      metric.Int64Counter
	contributorsTotal metric.Int64Counter
	lookupDuration    metric.Float64Histogram
	handlesTotal      metric.Int64Counter
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
}

// PipelineStats holds the statistics for a single generation run,
// decoupled from the notes and forge types.
type PipelineStats struct {
	Commits         int64
	Contributors    int64
	LookupDurations []time.Duration
	HandlesResolved int64
	CacheHits       int64
	CacheMisses     int64
}

// NewPipelineMetrics creates pipeline metric instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	b := newMetricBuilder(mt)

	pm := &PipelineMetrics{
		commitsTotal:      b.counter(metricCommitsTotal, "Total commits collected into release notes", "{commit}"),
		contributorsTotal: b.counter(metricContributorsTot, "Total distinct contributors collected", "{contributor}"),
		lookupDuration:    b.histogram(metricLookupDuration, "Per-identity forge lookup duration in seconds", "s", durationBucketBoundaries...),
		handlesTotal:      b.counter(metricHandlesTotal, "Total forge handles resolved", "{handle}"),
		cacheHits:         b.counter(metricCacheHitsTotal, "Lookup cache hits by type", "{hit}"),
		cacheMisses:       b.counter(metricCacheMissesTotal, "Lookup cache misses by type", "{miss}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return pm, nil
}

// RecordRun records pipeline statistics for a completed generation run.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordRun(ctx context.Context, stats PipelineStats) {
	if pm == nil {
		return
	}

	pm.commitsTotal.Add(ctx, stats.Commits)
	pm.contributorsTotal.Add(ctx, stats.Contributors)

	for _, d := range stats.LookupDurations {
		pm.lookupDuration.Record(ctx, d.Seconds())
	}

	pm.handlesTotal.Add(ctx, stats.HandlesResolved)

	handleAttrs := metric.WithAttributes(attribute.String(attrCache, cacheHandle))
	pm.cacheHits.Add(ctx, stats.CacheHits, handleAttrs)
	pm.cacheMisses.Add(ctx, stats.CacheMisses, handleAttrs)
}
