// Package commands implements CLI command handlers for relfang.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relfang/pkg/config"
	"github.com/Sumatoshi-tech/relfang/pkg/forge"
	"github.com/Sumatoshi-tech/relfang/pkg/gitlib"
	"github.com/Sumatoshi-tech/relfang/pkg/notes"
	"github.com/Sumatoshi-tech/relfang/pkg/observability"
)

// outputFileMode is the permission for documents written via --output.
const outputFileMode = 0o644

// attributorProvider constructs the handle resolver for one run. Tests
// inject fakes.
type attributorProvider func(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	metrics *observability.REDMetrics,
) (notes.Attributor, error)

// observabilityInitializer builds telemetry providers for one run. Tests
// inject noops.
type observabilityInitializer func(observability.Config) (observability.Providers, error)

// lookupStats is implemented by attributors that expose per-run lookup
// counters.
type lookupStats interface {
	Stats() forge.Stats
}

// GenerateCommand holds configuration and dependencies for the generate
// command.
type GenerateCommand struct {
	path       string
	format     string
	output     string
	noLookup   bool
	noColor    bool
	configPath string

	attributorFn attributorProvider
	obsInitFn    observabilityInitializer
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	return newGenerateCommandWithDeps(defaultAttributor, observability.Init)
}

func newGenerateCommandWithDeps(attributorFn attributorProvider, obsInitFn observabilityInitializer) *cobra.Command {
	gc := &GenerateCommand{attributorFn: attributorFn, obsInitFn: obsInitFn}

	cmd := &cobra.Command{
		Use:   "generate <owner/repo>",
		Short: "Generate release notes for the latest tag",
		Long: `Generate release notes for the most recent release of a repository.

The notes cover the commits between the previous release tag and the
current one (or HEAD when the repository has moved past the tag), list
their authors and link pull requests referenced in commit subjects.
With a GitHub token in RELFANG_GITHUB_TOKEN or GITHUB_TOKEN, author
names are resolved to forge handles.`,
		Args: cobra.ExactArgs(1),
		RunE: gc.run,
	}

	cmd.Flags().StringVarP(&gc.path, "path", "p", ".", "Repository path to read")
	cmd.Flags().StringVar(&gc.format, "format", "", "Output format: markdown, json, yaml, table")
	cmd.Flags().StringVarP(&gc.output, "output", "o", "", "Write the document to a file instead of stdout")
	cmd.Flags().BoolVar(&gc.noLookup, "no-lookup", false, "Skip forge handle lookups")
	cmd.Flags().BoolVar(&gc.noColor, "no-color", false, "Disable colored table output")
	cmd.Flags().StringVar(&gc.configPath, "config", "", "Config file path (default: search relfang.yaml)")

	return cmd
}

func (gc *GenerateCommand) run(cmd *cobra.Command, args []string) error {
	slug, err := notes.ParseSlug(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(gc.configPath)
	if err != nil {
		return err
	}

	gc.applyFlagOverrides(cmd, cfg)

	format, err := notes.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	if !cfg.Output.Color {
		color.NoColor = true
	}

	obsCfg := buildObsConfig(cfg)
	obsCfg.Mode = observability.ModeCLI
	obsCfg.LogLevel = logLevel(cmd, cfg)

	providers, err := gc.obsInitFn(obsCfg)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	doc, rendered, err := gc.generate(cmd.Context(), cfg, slug, format, providers)
	if err != nil {
		return err
	}

	providers.Logger.Info("release notes generated",
		"tag", doc.Tag,
		"commits", len(doc.Changes),
		"contributors", len(doc.Contributors))

	return gc.writeOut(cmd.OutOrStdout(), rendered)
}

// generate runs the pipeline: open the repository, resolve the release
// range, attribute authors and render the document.
func (gc *GenerateCommand) generate(
	ctx context.Context,
	cfg *config.Config,
	slug notes.Slug,
	format notes.Format,
	providers observability.Providers,
) (*notes.ReleaseNotes, string, error) {
	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, "", err
	}

	pipelineMetrics, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, "", err
	}

	attributor, err := gc.attributorFn(ctx, cfg, providers.Logger, red)
	if err != nil {
		return nil, "", err
	}

	repo, err := gitlib.LoadRepository(gc.path)
	if err != nil {
		return nil, "", fmt.Errorf("load repository %s: %w", gc.path, err)
	}
	defer repo.Free()

	gen := notes.NewGenerator(repo, slug)
	gen.Attributor = attributor
	gen.Logger = providers.Logger
	gen.Tracer = providers.Tracer

	if cfg.Forge.Host != "" {
		gen.Host = cfg.Forge.Host
	}

	doc, err := gen.Generate(ctx)
	if err != nil {
		return nil, "", err
	}

	rendered, err := notes.Render(doc, format)
	if err != nil {
		return nil, "", err
	}

	recordPipeline(ctx, pipelineMetrics, attributor, doc)

	return doc, rendered, nil
}

// applyFlagOverrides layers explicit command flags over the loaded
// configuration.
func (gc *GenerateCommand) applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = gc.format
	}

	if gc.noLookup {
		cfg.Lookup.Enabled = false
	}

	if gc.noColor {
		cfg.Output.Color = false
	}
}

func (gc *GenerateCommand) writeOut(stdout io.Writer, rendered string) error {
	if gc.output == "" {
		_, err := fmt.Fprint(stdout, rendered)

		return err
	}

	err := os.WriteFile(gc.output, []byte(rendered), outputFileMode)
	if err != nil {
		return fmt.Errorf("write output %s: %w", gc.output, err)
	}

	return nil
}

// recordPipeline publishes per-run pipeline metrics.
func recordPipeline(
	ctx context.Context,
	pipelineMetrics *observability.PipelineMetrics,
	attributor notes.Attributor,
	doc *notes.ReleaseNotes,
) {
	stats := observability.PipelineStats{
		Commits:      int64(len(doc.Changes)),
		Contributors: int64(len(doc.Contributors)),
	}

	if src, ok := attributor.(lookupStats); ok {
		lookups := src.Stats()
		stats.LookupDurations = lookups.Durations
		stats.HandlesResolved = lookups.Resolved
		stats.CacheHits = lookups.CacheHits
		stats.CacheMisses = lookups.CacheMisses
	}

	pipelineMetrics.RecordRun(ctx, stats)
}

// defaultAttributor builds a forge resolver when lookups are enabled and
// a token is present. Without a token no resolver is constructed and
// plain author names render.
func defaultAttributor(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	metrics *observability.REDMetrics,
) (notes.Attributor, error) {
	if !cfg.Lookup.Enabled {
		return nil, nil
	}

	token := forge.TokenFromEnv()
	if token == "" {
		logger.Debug("no forge token found, rendering plain author names")

		return nil, nil
	}

	client, err := forge.NewClient(ctx, token, cfg.Forge.BaseURL)
	if err != nil {
		return nil, err
	}

	resolver := forge.NewResolver(client,
		forge.WithConcurrency(cfg.Lookup.Concurrency),
		forge.WithTimeout(cfg.Lookup.Timeout),
		forge.WithLogger(logger),
		forge.WithMetrics(metrics),
	)

	return resolver, nil
}
