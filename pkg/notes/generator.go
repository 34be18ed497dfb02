// Package notes assembles release notes from a repository's tag and
// commit history. A Generator resolves the release range, enumerates
// the commits inside it, attributes their authors and produces a
// document renderable as markdown, JSON, YAML or a terminal table.
package notes

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/relfang/pkg/gitlib"
	"github.com/Sumatoshi-tech/relfang/pkg/observability"
)

// tracerName is the default OTel tracer name for the notes package.
const tracerName = "relfang"

// DefaultHost is the forge host hyperlinks point at when none is
// configured.
const DefaultHost = "github.com"

// Attributor resolves forge handles for author identities. A Generate
// call hands over the full unique-author set in one batch; missing or
// empty entries in the returned map leave the plain name in place.
type Attributor interface {
	ResolveAll(ctx context.Context, identities []Identity) map[Identity]string
}

// Generator assembles release notes for one repository.
type Generator struct {
	Repo *gitlib.Repository
	Slug Slug

	// Host is the forge host used in hyperlinks. Empty means
	// DefaultHost.
	Host string

	// Attributor resolves contributor handles. Nil skips resolution and
	// every author renders as a plain name.
	Attributor Attributor

	// Logger receives debug diagnostics. Nil falls back to slog.Default().
	Logger *slog.Logger

	// Tracer is the OTel tracer for pipeline spans.
	// When nil, falls back to otel.Tracer("relfang").
	Tracer trace.Tracer
}

// NewGenerator creates a Generator for the repository with the default
// host.
func NewGenerator(repo *gitlib.Repository, slug Slug) *Generator {
	return &Generator{Repo: repo, Slug: slug, Host: DefaultHost}
}

// Generate resolves the release range, enumerates it and assembles the
// document. Repositories without tags fail with ErrNoTagsFound.
func (g *Generator) Generate(ctx context.Context) (*ReleaseNotes, error) {
	ctx, span := g.tracer().Start(ctx, "relfang.generate",
		trace.WithAttributes(attribute.String("notes.repository", g.Slug.String())))
	defer span.End()

	current, previous, err := g.resolveRefs(ctx)
	if err != nil {
		return nil, err
	}

	rng, err := selectRange(g.Repo, current, previous)
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeInternal, observability.ErrSourceDependency)

		return nil, err
	}

	g.logger().Debug("release range selected",
		"current", current.Name,
		"previous", previous.Name,
		"in_progress", rng.InProgress,
	)

	narrowed := false

	if rng.OldHash == rng.NewHash {
		rng, err = narrowToCurrent(g.Repo, rng, current)
		if err != nil {
			observability.RecordSpanError(span, err, observability.ErrTypeInternal, observability.ErrSourceDependency)

			return nil, err
		}

		narrowed = true
	}

	changes, contributors, err := g.collect(ctx, rng)
	if err != nil {
		return nil, err
	}

	// A walk that comes back empty still narrows once so the release
	// commit itself is shown.
	if len(changes) == 0 && !narrowed {
		rng, err = narrowToCurrent(g.Repo, rng, current)
		if err != nil {
			observability.RecordSpanError(span, err, observability.ErrTypeInternal, observability.ErrSourceDependency)

			return nil, err
		}

		changes, contributors, err = g.collect(ctx, rng)
		if err != nil {
			return nil, err
		}
	}

	g.attribute(ctx, changes, contributors)

	span.SetAttributes(
		attribute.String("notes.tag", current.Name),
		attribute.Int("notes.commits", len(changes)),
		attribute.Int("notes.contributors", len(contributors)),
	)

	tip := current.Target.String()
	if len(changes) > 0 {
		tip = changes[0].Hash
	}

	return &ReleaseNotes{
		Repository:   g.Slug.String(),
		Host:         g.host(),
		Tag:          current.Name,
		PreviousRef:  rng.OldName,
		CurrentRef:   rng.NewName,
		Tip:          tip,
		Changes:      changes,
		Contributors: contributors,
	}, nil
}

// resolveRefs determines the current and previous release references.
func (g *Generator) resolveRefs(ctx context.Context) (gitlib.Tag, gitlib.Tag, error) {
	_, span := g.tracer().Start(ctx, "relfang.tags")
	defer span.End()

	current, err := currentTag(g.Repo)
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeValidation, "")

		return gitlib.Tag{}, gitlib.Tag{}, err
	}

	previous, err := previousTag(g.Repo, current)
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeInternal, observability.ErrSourceDependency)

		return gitlib.Tag{}, gitlib.Tag{}, err
	}

	span.SetAttributes(
		attribute.String("notes.tag", current.Name),
		attribute.String("notes.previous", previous.Name),
	)

	return current, previous, nil
}

// collect runs the range walk under its own span.
func (g *Generator) collect(ctx context.Context, rng Range) ([]Change, []Contributor, error) {
	_, span := g.tracer().Start(ctx, "relfang.collect",
		trace.WithAttributes(attribute.String("notes.range", rng.OldName+".."+rng.NewName)))
	defer span.End()

	changes, contributors, err := collectChanges(g.Repo, rng)
	if err != nil {
		observability.RecordSpanError(span, err, observability.ErrTypeInternal, observability.ErrSourceDependency)

		return nil, nil, err
	}

	span.SetAttributes(attribute.Int("notes.commits", len(changes)))

	return changes, contributors, nil
}

// attribute fills resolved handles into the contributor list and every
// change's author. The Attributor degrades internally; whatever it does
// not resolve stays a plain name.
func (g *Generator) attribute(ctx context.Context, changes []Change, contributors []Contributor) {
	if g.Attributor == nil || len(contributors) == 0 {
		return
	}

	ctx, span := g.tracer().Start(ctx, "relfang.attribute",
		trace.WithAttributes(attribute.Int("notes.contributors", len(contributors))))
	defer span.End()

	identities := make([]Identity, len(contributors))
	for i, c := range contributors {
		identities[i] = c.Identity
	}

	handles := g.Attributor.ResolveAll(ctx, identities)

	resolved := 0

	for i := range contributors {
		if handle := handles[contributors[i].Identity]; handle != "" {
			contributors[i].Handle = handle
			resolved++
		}
	}

	for i := range changes {
		if handle := handles[changes[i].Author.Identity]; handle != "" {
			changes[i].Author.Handle = handle
		}
	}

	span.SetAttributes(attribute.Int("notes.handles_resolved", resolved))
}

// tracer returns the configured tracer, falling back to the global
// provider.
func (g *Generator) tracer() trace.Tracer {
	if g.Tracer != nil {
		return g.Tracer
	}

	return otel.Tracer(tracerName)
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}

	return slog.Default()
}

func (g *Generator) host() string {
	if g.Host != "" {
		return g.Host
	}

	return DefaultHost
}
