package notes_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/relfang/pkg/gitlib"
	"github.com/Sumatoshi-tech/relfang/pkg/notes"
)

// mapAttributor resolves handles from a fixed map.
type mapAttributor struct {
	handles map[notes.Identity]string
	calls   int
}

func (m *mapAttributor) ResolveAll(_ context.Context, _ []notes.Identity) map[notes.Identity]string {
	m.calls++

	return m.handles
}

func openRepo(t *testing.T, fixture *gitlib.TestRepo) *gitlib.Repository {
	t.Helper()

	repo, err := gitlib.OpenRepository(fixture.Path())
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return repo
}

// releaseFixture builds a repository with a v1.0.0 release followed by
// three commits from two authors tagged v1.1.0.
func releaseFixture(t *testing.T) (*gitlib.TestRepo, gitlib.Hash) {
	t.Helper()

	fixture := gitlib.NewTestRepo(t)
	fixture.WriteFile("main.go", "package main\n")
	first := fixture.Commit("initial import")
	fixture.Tag("v1.0.0", first)

	fixture.WriteFile("lexer.go", "package main\n")
	fixture.CommitAs("Ada Lovelace", "ada@example.com", "add lexer (#10)")
	fixture.WriteFile("parser.go", "package main\n")
	fixture.CommitAs("Grace Hopper", "grace@example.com", "add parser (#11)")
	fixture.WriteFile("lexer.go", "package main\n\nfunc Lex() {}\n")
	tip := fixture.CommitAs("Ada Lovelace", "ada@example.com", "fix lexer (#12)")
	fixture.Tag("v1.1.0", tip)

	return fixture, tip
}

func TestGenerateClosedRelease(t *testing.T) {
	t.Parallel()

	fixture, tip := releaseFixture(t)
	repo := openRepo(t, fixture)

	gen := notes.NewGenerator(repo, notes.Slug{Owner: "acme", Repo: "rocket"})

	doc, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "acme/rocket", doc.Repository)
	assert.Equal(t, "github.com", doc.Host)
	assert.Equal(t, "v1.1.0", doc.Tag)
	assert.Equal(t, "v1.0.0", doc.PreviousRef)
	assert.Equal(t, "v1.1.0", doc.CurrentRef)
	assert.Equal(t, tip.String(), doc.Tip)

	require.Len(t, doc.Changes, 3)
	assert.Equal(t, "fix lexer (#12)", doc.Changes[0].Subject)
	assert.Equal(t, "add parser (#11)", doc.Changes[1].Subject)
	assert.Equal(t, "add lexer (#10)", doc.Changes[2].Subject)
	assert.Equal(t, 12, doc.Changes[0].PR)

	require.Len(t, doc.Contributors, 2)
	assert.Equal(t, "Ada Lovelace", doc.Contributors[0].Name)
	assert.Equal(t, "Grace Hopper", doc.Contributors[1].Name)

	rendered := notes.RenderMarkdown(doc)
	assert.Contains(t, rendered, "# Release v1.1.0")
	assert.Contains(t, rendered, "3 commits by 2 contributors.")
	assert.Contains(t, rendered, "**Full Changelog**: https://github.com/acme/rocket/compare/v1.0.0...v1.1.0")
}

func TestGenerateInProgress(t *testing.T) {
	t.Parallel()

	fixture := gitlib.NewTestRepo(t)
	fixture.WriteFile("main.go", "package main\n")
	first := fixture.Commit("initial import")
	fixture.Tag("v1.0.0", first)
	fixture.WriteFile("lexer.go", "package main\n")
	head := fixture.CommitAs("Ada Lovelace", "ada@example.com", "add lexer (#10)")

	repo := openRepo(t, fixture)

	gen := notes.NewGenerator(repo, notes.Slug{Owner: "acme", Repo: "rocket"})

	doc, err := gen.Generate(context.Background())
	require.NoError(t, err)

	// Unreleased work on top of the last release.
	assert.Equal(t, "v1.0.0", doc.Tag)
	assert.Equal(t, "v1.0.0", doc.PreviousRef)
	assert.Equal(t, "HEAD", doc.CurrentRef)
	assert.Equal(t, head.String(), doc.Tip)

	require.Len(t, doc.Changes, 1)
	assert.Equal(t, "add lexer (#10)", doc.Changes[0].Subject)

	rendered := notes.RenderMarkdown(doc)
	assert.Contains(t, rendered, "compare/v1.0.0...HEAD")
}

func TestGenerateSingleRelease(t *testing.T) {
	t.Parallel()

	fixture := gitlib.NewTestRepo(t)
	fixture.WriteFile("main.go", "package main\n")
	root := fixture.Commit("initial import")
	fixture.WriteFile("lexer.go", "package main\n")
	tip := fixture.Commit("add lexer")
	fixture.Tag("v1.0.0", tip)

	repo := openRepo(t, fixture)

	gen := notes.NewGenerator(repo, notes.Slug{Owner: "acme", Repo: "rocket"})

	doc, err := gen.Generate(context.Background())
	require.NoError(t, err)

	// Only release; the range reaches back to the root commit.
	assert.Equal(t, "v1.0.0", doc.Tag)
	assert.Equal(t, root.String(), doc.PreviousRef)
	assert.Equal(t, "v1.0.0", doc.CurrentRef)

	require.Len(t, doc.Changes, 1)
	assert.Equal(t, "add lexer", doc.Changes[0].Subject)
}

func TestGenerateRootRelease(t *testing.T) {
	t.Parallel()

	fixture := gitlib.NewTestRepo(t)
	fixture.WriteFile("main.go", "package main\n")
	root := fixture.Commit("initial import")
	fixture.Tag("v1.0.0", root)

	repo := openRepo(t, fixture)

	gen := notes.NewGenerator(repo, notes.Slug{Owner: "acme", Repo: "rocket"})

	doc, err := gen.Generate(context.Background())
	require.NoError(t, err)

	// The tagged root commit still shows itself instead of an empty list.
	assert.Equal(t, "v1.0.0", doc.Tag)
	require.Len(t, doc.Changes, 1)
	assert.Equal(t, "initial import", doc.Changes[0].Subject)
	assert.Equal(t, root.String(), doc.Tip)

	require.Len(t, doc.Contributors, 1)
}

func TestGenerateNoTags(t *testing.T) {
	t.Parallel()

	fixture := gitlib.NewTestRepo(t)
	fixture.WriteFile("main.go", "package main\n")
	fixture.Commit("initial import")

	repo := openRepo(t, fixture)

	gen := notes.NewGenerator(repo, notes.Slug{Owner: "acme", Repo: "rocket"})

	_, err := gen.Generate(context.Background())
	require.ErrorIs(t, err, notes.ErrNoTagsFound)
}

func TestGenerateResolvesHandles(t *testing.T) {
	t.Parallel()

	fixture, _ := releaseFixture(t)
	repo := openRepo(t, fixture)

	ada := notes.Identity{Name: "Ada Lovelace", Email: "ada@example.com"}
	attributor := &mapAttributor{handles: map[notes.Identity]string{ada: "alovelace"}}

	gen := notes.NewGenerator(repo, notes.Slug{Owner: "acme", Repo: "rocket"})
	gen.Attributor = attributor

	doc, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, attributor.calls, "the whole batch resolves in one call")

	require.Len(t, doc.Contributors, 2)
	assert.Equal(t, "alovelace", doc.Contributors[0].Handle)
	assert.Empty(t, doc.Contributors[1].Handle, "unresolved identities keep no handle")

	// Every change by the resolved author carries the handle.
	assert.Equal(t, "alovelace", doc.Changes[0].Author.Handle)
	assert.Empty(t, doc.Changes[1].Author.Handle)
	assert.Equal(t, "alovelace", doc.Changes[2].Author.Handle)

	rendered := notes.RenderMarkdown(doc)
	assert.Contains(t, rendered, "[@alovelace](https://github.com/alovelace)")
	assert.Contains(t, rendered, "Grace Hopper")
	assert.False(t, strings.Contains(rendered, "[@Grace"), "unresolved authors render as plain names")
}

func TestGenerateWithoutAttributor(t *testing.T) {
	t.Parallel()

	fixture, _ := releaseFixture(t)
	repo := openRepo(t, fixture)

	gen := notes.NewGenerator(repo, notes.Slug{Owner: "acme", Repo: "rocket"})

	doc, err := gen.Generate(context.Background())
	require.NoError(t, err)

	for _, c := range doc.Contributors {
		assert.Empty(t, c.Handle)
	}
}
