package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relfang/pkg/config"
	"github.com/Sumatoshi-tech/relfang/pkg/observability"
	"github.com/Sumatoshi-tech/relfang/pkg/version"
)

// buildObsConfig maps loaded configuration onto observability settings.
// Standard OTLP environment variables fill any endpoint details the
// config leaves empty.
func buildObsConfig(cfg *config.Config) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.OTLPEndpoint = cfg.OTel.Endpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.OTel.Headers)
	obsCfg.OTLPInsecure = cfg.OTel.Insecure
	obsCfg.SampleRatio = cfg.OTel.SampleRatio
	obsCfg.DebugTrace = cfg.OTel.Debug
	obsCfg.TraceVerbose = cfg.OTel.Verbose
	obsCfg.LogJSON = cfg.Logging.Format == "json"

	if obsCfg.OTLPEndpoint == "" {
		obsCfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}

	if len(obsCfg.OTLPHeaders) == 0 {
		obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	}

	if !obsCfg.OTLPInsecure {
		obsCfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	}

	return obsCfg
}

// logLevel resolves the slog level from the persistent verbosity flags
// and the configured level, flags winning.
func logLevel(cmd *cobra.Command, cfg *config.Config) slog.Level {
	if flagBool(cmd, "quiet") {
		return slog.LevelError
	}

	if flagBool(cmd, "verbose") {
		return slog.LevelDebug
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// flagBool reads a bool flag, tolerating commands executed without the
// root command's persistent flags.
func flagBool(cmd *cobra.Command, name string) bool {
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}

	return value
}
