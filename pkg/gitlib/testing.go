package gitlib

import (
	"os"
	"path/filepath"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// TB is the subset of testing.TB used by TestRepo. Both *testing.T and
// *testing.B satisfy it.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
	TempDir() string
	Cleanup(func())
}

// TestRepo builds throwaway repositories for tests. It wraps a native
// repository with helpers for staging files, committing as specific
// authors and placing tags. Commit timestamps advance by one minute per
// commit so time-sorted walks have a strict order.
type TestRepo struct {
	tb     TB
	path   string
	native *git2go.Repository
	clock  time.Time
}

// NewTestRepo initializes an empty repository in a temporary directory.
// The repository is freed when the test finishes.
func NewTestRepo(tb TB) *TestRepo {
	tb.Helper()

	dir := tb.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	if err != nil {
		tb.Fatalf("init repository: %v", err)
	}

	tb.Cleanup(repo.Free)

	return &TestRepo{
		tb:     tb,
		path:   dir,
		native: repo,
		clock:  time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Path returns the repository working directory.
func (r *TestRepo) Path() string { return r.path }

// WriteFile creates or overwrites a file in the working directory.
func (r *TestRepo) WriteFile(name, content string) {
	r.tb.Helper()

	path := filepath.Join(r.path, name)

	if dir := filepath.Dir(path); dir != r.path {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			r.tb.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.tb.Fatalf("write %s: %v", name, err)
	}
}

// Commit stages everything and commits as the default author.
func (r *TestRepo) Commit(message string) Hash {
	r.tb.Helper()

	return r.CommitAs("Test User", "test@example.com", message)
}

// CommitAs stages everything and commits with the given author identity.
func (r *TestRepo) CommitAs(name, email, message string) Hash {
	r.tb.Helper()

	index, err := r.native.Index()
	if err != nil {
		r.tb.Fatalf("open index: %v", err)
	}

	defer index.Free()

	if err := index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil); err != nil {
		r.tb.Fatalf("stage files: %v", err)
	}

	if err := index.Write(); err != nil {
		r.tb.Fatalf("write index: %v", err)
	}

	treeID, err := index.WriteTree()
	if err != nil {
		r.tb.Fatalf("write tree: %v", err)
	}

	tree, err := r.native.LookupTree(treeID)
	if err != nil {
		r.tb.Fatalf("lookup tree: %v", err)
	}

	defer tree.Free()

	r.clock = r.clock.Add(time.Minute)

	sig := &git2go.Signature{Name: name, Email: email, When: r.clock}

	var parents []*git2go.Commit

	if head, headErr := r.native.Head(); headErr == nil {
		parent, lookupErr := r.native.LookupCommit(head.Target())
		if lookupErr != nil {
			r.tb.Fatalf("lookup head commit: %v", lookupErr)
		}

		parents = append(parents, parent)

		head.Free()
	}

	oid, err := r.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	if err != nil {
		r.tb.Fatalf("create commit: %v", err)
	}

	for _, parent := range parents {
		parent.Free()
	}

	return HashFromOid(oid)
}

// Tag places a lightweight tag on the given commit.
func (r *TestRepo) Tag(name string, hash Hash) {
	r.tb.Helper()

	commit, err := r.native.LookupCommit(hash.ToOid())
	if err != nil {
		r.tb.Fatalf("lookup commit for tag %s: %v", name, err)
	}

	defer commit.Free()

	if _, err := r.native.Tags.CreateLightweight(name, commit, false); err != nil {
		r.tb.Fatalf("create tag %s: %v", name, err)
	}
}

// AnnotatedTag places an annotated tag on the given commit.
func (r *TestRepo) AnnotatedTag(name string, hash Hash, message string) {
	r.tb.Helper()

	commit, err := r.native.LookupCommit(hash.ToOid())
	if err != nil {
		r.tb.Fatalf("lookup commit for tag %s: %v", name, err)
	}

	defer commit.Free()

	sig := &git2go.Signature{
		Name:  "Test User",
		Email: "test@example.com",
		When:  r.clock,
	}

	if _, err := r.native.Tags.Create(name, commit, sig, message); err != nil {
		r.tb.Fatalf("create annotated tag %s: %v", name, err)
	}
}

// DetachHead moves HEAD to the given commit, leaving it detached.
func (r *TestRepo) DetachHead(hash Hash) {
	r.tb.Helper()

	if err := r.native.SetHeadDetached(hash.ToOid()); err != nil {
		r.tb.Fatalf("detach head: %v", err)
	}
}
