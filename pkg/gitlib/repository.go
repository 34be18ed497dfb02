package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrRootNotFound is returned when history contains no parentless commit,
// which only happens when the walk itself yields nothing.
var ErrRootNotFound = errors.New("root commit not found")

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit: %w", err)
	}

	return &Commit{commit: commit, repo: r}, nil
}

// Walk creates a new revision walker.
func (r *Repository) Walk() (*RevWalk, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	return &RevWalk{walk: walk, repo: r}, nil
}

// LogRange returns a commit iterator over the half-open range oldest..newest:
// commits reachable from newest, excluding oldest and its ancestors. A zero
// oldest hash walks the whole history below newest.
func (r *Repository) LogRange(oldest, newest Hash) (*CommitIter, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	err = walk.Push(newest.ToOid())
	if err != nil {
		walk.Free()

		return nil, fmt.Errorf("push to revwalk: %w", err)
	}

	if !oldest.IsZero() {
		err = walk.Hide(oldest.ToOid())
		if err != nil {
			walk.Free()

			return nil, fmt.Errorf("hide from revwalk: %w", err)
		}
	}

	// Time plus topological order keeps the listing newest-first even when
	// branch timestamps are skewed.
	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	return &CommitIter{walk: walk, repo: r}, nil
}

// RootCommit returns the first commit of the history reachable from start,
// that is the oldest parentless commit the walk reports.
func (r *Repository) RootCommit(start Hash) (Hash, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return Hash{}, fmt.Errorf("create revwalk: %w", err)
	}
	defer walk.Free()

	err = walk.Push(start.ToOid())
	if err != nil {
		return Hash{}, fmt.Errorf("push to revwalk: %w", err)
	}

	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	var root Hash

	err = walk.Iterate(func(commit *git2go.Commit) bool {
		if commit.ParentCount() == 0 {
			root = HashFromOid(commit.Id())
		}

		commit.Free()

		return true
	})
	if err != nil {
		return Hash{}, fmt.Errorf("walk history: %w", err)
	}

	if root.IsZero() {
		return Hash{}, ErrRootNotFound
	}

	return root, nil
}
