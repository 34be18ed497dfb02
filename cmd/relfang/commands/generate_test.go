package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/relfang/pkg/config"
	"github.com/Sumatoshi-tech/relfang/pkg/gitlib"
	"github.com/Sumatoshi-tech/relfang/pkg/notes"
	"github.com/Sumatoshi-tech/relfang/pkg/observability"
)

func noopObservabilityInit(_ observability.Config) (observability.Providers, error) {
	return observability.Providers{
		Tracer:   nooptrace.NewTracerProvider().Tracer("test"),
		Meter:    noopmetric.NewMeterProvider().Meter("test"),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Shutdown: func(_ context.Context) error { return nil },
	}, nil
}

// nilAttributor is the provider used when a test does not care about
// handle resolution.
func nilAttributor(
	_ context.Context, _ *config.Config, _ *slog.Logger, _ *observability.REDMetrics,
) (notes.Attributor, error) {
	return nil, nil
}

type stubAttributor struct {
	handles map[notes.Identity]string
	calls   int
}

func (s *stubAttributor) ResolveAll(_ context.Context, identities []notes.Identity) map[notes.Identity]string {
	s.calls++

	resolved := make(map[notes.Identity]string, len(identities))

	for _, id := range identities {
		if handle, ok := s.handles[id]; ok {
			resolved[id] = handle
		}
	}

	return resolved
}

// fixtureRepo builds a repository with two tagged releases and returns
// its working directory.
func fixtureRepo(tb testing.TB) string {
	tb.Helper()

	repo := gitlib.NewTestRepo(tb)
	repo.WriteFile("main.go", "package main\n")
	first := repo.Commit("initial import")
	repo.Tag("v1.0.0", first)

	repo.WriteFile("lexer.go", "package main\n")
	repo.CommitAs("Ada Lovelace", "ada@example.com", "add lexer (#10)")

	repo.WriteFile("parser.go", "package main\n")
	tip := repo.CommitAs("Grace Hopper", "grace@example.com", "add parser (#11)")
	repo.Tag("v1.1.0", tip)

	return repo.Path()
}

func TestGenerateCommand_WritesMarkdownToStdout(t *testing.T) {
	t.Parallel()

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"acme/rocket", "--path", fixtureRepo(t)})

	err := command.Execute()
	require.NoError(t, err)

	rendered := out.String()
	assert.True(t, strings.HasPrefix(rendered, "# Release v1.1.0"), "got: %s", rendered)
	assert.Contains(t, rendered, "2 commits by 2 contributors.")
	assert.Contains(t, rendered, "add parser (Grace Hopper) ([#11](https://github.com/acme/rocket/pull/11))")
	assert.Contains(t, rendered, "**Full Changelog**: https://github.com/acme/rocket/compare/v1.0.0...v1.1.0")
}

func TestGenerateCommand_WrongArity(t *testing.T) {
	t.Parallel()

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{})

	err := command.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestGenerateCommand_InvalidSlug(t *testing.T) {
	t.Parallel()

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"not-a-slug", "--path", fixtureRepo(t)})

	err := command.Execute()
	require.ErrorIs(t, err, notes.ErrInvalidRepoSlug)
}

func TestGenerateCommand_InvalidFormat(t *testing.T) {
	t.Parallel()

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"acme/rocket", "--path", fixtureRepo(t), "--format", "xml"})

	err := command.Execute()
	require.ErrorIs(t, err, notes.ErrUnknownFormat)
}

func TestGenerateCommand_NoTags(t *testing.T) {
	t.Parallel()

	repo := gitlib.NewTestRepo(t)
	repo.WriteFile("main.go", "package main\n")
	repo.Commit("initial import")

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"acme/rocket", "--path", repo.Path()})

	err := command.Execute()
	require.ErrorIs(t, err, notes.ErrNoTagsFound)
}

func TestGenerateCommand_NotARepository(t *testing.T) {
	t.Parallel()

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"acme/rocket", "--path", t.TempDir()})

	err := command.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load repository")
}

func TestGenerateCommand_JSONFormat(t *testing.T) {
	t.Parallel()

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"acme/rocket", "--path", fixtureRepo(t), "--format", "json"})

	err := command.Execute()
	require.NoError(t, err)

	rendered := out.String()
	assert.True(t, strings.HasPrefix(rendered, "{"), "got: %s", rendered)
	assert.Contains(t, rendered, `"tag": "v1.1.0"`)
}

func TestGenerateCommand_OutputFile(t *testing.T) {
	t.Parallel()

	outPath := filepath.Join(t.TempDir(), "notes.md")

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"acme/rocket", "--path", fixtureRepo(t), "--output", outPath})

	err := command.Execute()
	require.NoError(t, err)
	assert.Empty(t, out.String())

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(written), "# Release v1.1.0")
}

func TestGenerateCommand_NoLookupDisablesAttribution(t *testing.T) {
	t.Parallel()

	var seenEnabled bool

	provider := func(
		_ context.Context, cfg *config.Config, _ *slog.Logger, _ *observability.REDMetrics,
	) (notes.Attributor, error) {
		seenEnabled = cfg.Lookup.Enabled

		return nil, nil
	}

	command := newGenerateCommandWithDeps(provider, noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"acme/rocket", "--path", fixtureRepo(t), "--no-lookup"})

	err := command.Execute()
	require.NoError(t, err)
	assert.False(t, seenEnabled)
}

func TestGenerateCommand_ResolvedHandlesRender(t *testing.T) {
	t.Parallel()

	stub := &stubAttributor{handles: map[notes.Identity]string{
		{Name: "Ada Lovelace", Email: "ada@example.com"}: "alovelace",
	}}

	provider := func(
		_ context.Context, _ *config.Config, _ *slog.Logger, _ *observability.REDMetrics,
	) (notes.Attributor, error) {
		return stub, nil
	}

	command := newGenerateCommandWithDeps(provider, noopObservabilityInit)

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"acme/rocket", "--path", fixtureRepo(t)})

	err := command.Execute()
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.Contains(t, out.String(), "[@alovelace](https://github.com/alovelace)")
	assert.Contains(t, out.String(), "Grace Hopper")
}

func TestGenerateCommand_FormatFlagBeatsConfig(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "relfang.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("output:\n  format: yaml\n"), 0o644))

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{
		"acme/rocket",
		"--path", fixtureRepo(t),
		"--config", configPath,
		"--format", "json",
	})

	err := command.Execute()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "{"), "got: %s", out.String())
}

func TestGenerateCommand_ConfigFileFormat(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "relfang.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("output:\n  format: yaml\n"), 0o644))

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)

	var out bytes.Buffer

	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"acme/rocket", "--path", fixtureRepo(t), "--config", configPath})

	err := command.Execute()
	require.NoError(t, err)
	assert.Contains(t, out.String(), "tag: v1.1.0")
}

func TestGenerateCommand_MissingConfigFile(t *testing.T) {
	t.Parallel()

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{
		"acme/rocket",
		"--path", fixtureRepo(t),
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
	})

	err := command.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestGenerateCommand_InvalidConcurrencyConfig(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "relfang.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("lookup:\n  concurrency: 0\n"), 0o644))

	command := newGenerateCommandWithDeps(nilAttributor, noopObservabilityInit)
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"acme/rocket", "--path", fixtureRepo(t), "--config", configPath})

	err := command.Execute()
	require.ErrorIs(t, err, config.ErrInvalidConcurrency)
}
