package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relfang/pkg/config"
	"github.com/Sumatoshi-tech/relfang/pkg/mcp"
	"github.com/Sumatoshi-tech/relfang/pkg/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		debug      bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes release notes generation as a tool AI agents can
discover and invoke:
  - generate_release_notes: Build release notes for a local repository`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			providers, err := initMCPObservability(cfg, debug)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			red, redErr := observability.NewREDMetrics(providers.Meter)
			if redErr != nil {
				return redErr
			}

			pipelineMetrics, pipeErr := observability.NewPipelineMetrics(providers.Meter)
			if pipeErr != nil {
				return pipeErr
			}

			attributor, attrErr := defaultAttributor(cobraCmd.Context(), cfg, providers.Logger, red)
			if attrErr != nil {
				return attrErr
			}

			deps := mcp.ServerDeps{
				Logger:     providers.Logger,
				Metrics:    red,
				Pipeline:   pipelineMetrics,
				Tracer:     providers.Tracer,
				Attributor: attributor,
				Host:       cfg.Forge.Host,
			}

			srv := mcp.NewServer(deps)

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: search relfang.yaml)")

	return cmd
}

// initMCPObservability configures telemetry for stdio serving: logs go
// to stderr as JSON so stdout stays a clean protocol channel.
func initMCPObservability(cfg *config.Config, debug bool) (observability.Providers, error) {
	obsCfg := buildObsConfig(cfg)
	obsCfg.Mode = observability.ModeMCP
	obsCfg.LogJSON = true

	if debug {
		obsCfg.LogLevel = slog.LevelDebug
		obsCfg.DebugTrace = true
	}

	return observability.Init(obsCfg)
}
