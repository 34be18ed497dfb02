package forge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/go-github/v32/github"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/relfang/pkg/cache"
	"github.com/Sumatoshi-tech/relfang/pkg/notes"
	"github.com/Sumatoshi-tech/relfang/pkg/observability"
)

const (
	// DefaultConcurrency bounds parallel lookups against the search API.
	DefaultConcurrency = 4

	// DefaultTimeout caps one identity lookup, covering both search
	// queries it may issue.
	DefaultTimeout = 5 * time.Second

	// tracerName identifies the per-lookup tracer. It is suppressed by
	// the observability tracer filter unless verbose tracing is on.
	tracerName = "relfang.forge"

	// spanSearch is the per-identity lookup span.
	spanSearch = "relfang.forge.search"

	// opSearch labels lookup requests in RED metrics.
	opSearch = "forge.search"

	statusOK    = "ok"
	statusError = "error"
)

// Stats reports lookup activity recorded by a Resolver.
type Stats struct {
	// Durations holds one sample per lookup that reached the API.
	Durations []time.Duration

	// Resolved counts identities that came back with a handle.
	Resolved int64

	// CacheHits and CacheMisses count memo consultations.
	CacheHits   int64
	CacheMisses int64
}

// Resolver resolves author identities to handles via user search,
// memoizing each identity so it is queried at most once. It implements
// the notes attribution interface.
type Resolver struct {
	client      *github.Client
	logger      *slog.Logger
	tracer      trace.Tracer
	metrics     *observability.REDMetrics
	concurrency int
	timeout     time.Duration

	memo *cache.LRU[notes.Identity, string]

	statsMu sync.Mutex
	stats   Stats
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency sets the worker pool size for batch resolution.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithTimeout sets the per-identity lookup timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger receiving debug diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics enables RED metrics for lookup requests.
func WithMetrics(metrics *observability.REDMetrics) Option {
	return func(r *Resolver) {
		r.metrics = metrics
	}
}

// NewResolver creates a Resolver around the given API client.
func NewResolver(client *github.Client, opts ...Option) *Resolver {
	r := &Resolver{
		client:      client,
		tracer:      otel.Tracer(tracerName),
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		memo:        cache.New[notes.Identity, string](0),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	return r
}

// ResolveAll resolves the batch under the bounded worker pool and
// returns the identities that mapped to a handle. Lookup failures are
// logged at debug level and leave their identity out of the result.
func (r *Resolver) ResolveAll(ctx context.Context, identities []notes.Identity) map[notes.Identity]string {
	resolved := make(map[notes.Identity]string, len(identities))
	if len(identities) == 0 {
		return resolved
	}

	workers := r.concurrency
	if workers > len(identities) {
		workers = len(identities)
	}

	jobs := make(chan notes.Identity, len(identities))
	results := make(chan resolution, len(identities))

	var wg sync.WaitGroup

	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()

			for id := range jobs {
				results <- resolution{identity: id, handle: r.resolve(ctx, id)}
			}
		}()
	}

	for _, id := range identities {
		jobs <- id
	}

	close(jobs)
	wg.Wait()
	close(results)

	for res := range results {
		if res.handle != "" {
			resolved[res.identity] = res.handle
		}
	}

	return resolved
}

// Stats returns lookup activity recorded since the previous call and
// resets the counters, so each generation run reports its own deltas.
func (r *Resolver) Stats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	stats := r.stats
	r.stats = Stats{}

	return stats
}

// resolution pairs an identity with its lookup outcome.
type resolution struct {
	identity notes.Identity
	handle   string
}

// resolve consults the memo before going to the API. Every outcome,
// including a failed lookup, memoizes so an identity is queried at most
// once per resolver.
func (r *Resolver) resolve(ctx context.Context, id notes.Identity) string {
	if handle, ok := r.memo.Get(id); ok {
		r.statsMu.Lock()
		r.stats.CacheHits++
		r.statsMu.Unlock()

		return handle
	}

	r.statsMu.Lock()
	r.stats.CacheMisses++
	r.statsMu.Unlock()

	handle := r.lookup(ctx, id)
	r.memo.Put(id, handle)

	if handle != "" {
		r.statsMu.Lock()
		r.stats.Resolved++
		r.statsMu.Unlock()
	}

	return handle
}

// lookup performs one identity lookup under its own span, timeout and
// metrics. Failures degrade to an empty handle.
func (r *Resolver) lookup(ctx context.Context, id notes.Identity) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, spanSearch)
	defer span.End()

	if r.metrics != nil {
		defer r.metrics.TrackInflight(ctx, opSearch)()
	}

	start := time.Now()
	handle, err := r.search(ctx, id)
	duration := time.Since(start)

	r.statsMu.Lock()
	r.stats.Durations = append(r.stats.Durations, duration)
	r.statsMu.Unlock()

	status := statusOK

	if err != nil {
		status = statusError

		observability.RecordSpanError(span, err,
			observability.ErrTypeDependencyUnavailable, observability.ErrSourceDependency)
		r.logger.Debug("forge lookup failed", "author", id.Name, "error", err)
	}

	if r.metrics != nil {
		r.metrics.RecordRequest(ctx, opSearch, status, duration)
	}

	span.SetAttributes(attribute.Bool("forge.resolved", handle != ""))

	return handle
}

// search runs the email query first, then falls back to the sanitized
// full-name query.
func (r *Resolver) search(ctx context.Context, id notes.Identity) (string, error) {
	if id.Email != "" {
		handle, err := r.searchUsers(ctx, id.Email+" in:email")
		if err != nil || handle != "" {
			return handle, err
		}
	}

	if name := sanitizeName(id.Name); name != "" {
		return r.searchUsers(ctx, name+" in:fullname")
	}

	return "", nil
}

// searchUsers issues one user search and returns the top match's login,
// or an empty string when nothing matched.
func (r *Resolver) searchUsers(ctx context.Context, query string) (string, error) {
	result, _, err := r.client.Search.Users(ctx, query, &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("search users: %w", err)
	}

	if len(result.Users) == 0 {
		return "", nil
	}

	return result.Users[0].GetLogin(), nil
}

// sanitizeName strips a display name down to letters, digits and single
// spaces so it embeds safely in a search query.
func sanitizeName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, name)

	return strings.Join(strings.Fields(mapped), " ")
}
