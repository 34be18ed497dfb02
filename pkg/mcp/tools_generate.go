package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/relfang/pkg/forge"
	"github.com/Sumatoshi-tech/relfang/pkg/gitlib"
	"github.com/Sumatoshi-tech/relfang/pkg/notes"
	"github.com/Sumatoshi-tech/relfang/pkg/observability"
)

// handleGenerate handles the generate_release_notes tool call.
func (s *Server) handleGenerate(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input GenerateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	slug, format, err := validateGenerateInput(input)
	if err != nil {
		return errorResult(err)
	}

	repo, err := gitlib.LoadRepository(input.RepoPath)
	if err != nil {
		return errorResult(fmt.Errorf("load repository: %w", err))
	}
	defer repo.Free()

	gen := notes.NewGenerator(repo, slug)
	gen.Attributor = s.attributor

	if s.logger != nil {
		gen.Logger = s.logger
	}

	if s.host != "" {
		gen.Host = s.host
	}

	doc, err := gen.Generate(ctx)
	if err != nil {
		return errorResult(err)
	}

	rendered, err := notes.Render(doc, format)
	if err != nil {
		return errorResult(err)
	}

	s.recordRun(ctx, doc)

	return textResult(rendered, doc)
}

// statsSource is implemented by attributors that expose per-run lookup stats.
type statsSource interface {
	Stats() forge.Stats
}

// recordRun publishes pipeline metrics for one completed generation.
func (s *Server) recordRun(ctx context.Context, doc *notes.ReleaseNotes) {
	if s.pipeline == nil {
		return
	}

	stats := observability.PipelineStats{
		Commits:      int64(len(doc.Changes)),
		Contributors: int64(len(doc.Contributors)),
	}

	if src, ok := s.attributor.(statsSource); ok {
		lookups := src.Stats()
		stats.LookupDurations = lookups.Durations
		stats.HandlesResolved = lookups.Resolved
		stats.CacheHits = lookups.CacheHits
		stats.CacheMisses = lookups.CacheMisses
	}

	s.pipeline.RecordRun(ctx, stats)
}
