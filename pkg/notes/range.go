package notes

import (
	"fmt"

	"github.com/Sumatoshi-tech/relfang/pkg/gitlib"
)

// Range binds the references the notes compare with the walk endpoints
// enumerated between them.
type Range struct {
	// OldName and NewName are the reference names hyperlinks use:
	// previous tag or root commit hash on the old side, current tag or
	// HEAD on the new side.
	OldName string
	NewName string

	// OldHash..NewHash is the half-open interval the walk enumerates.
	// Narrowing may rewrite the hashes to the current tag's own commit
	// while the names keep pointing at the original references.
	OldHash gitlib.Hash
	NewHash gitlib.Hash

	// InProgress marks ranges whose new endpoint is HEAD rather than
	// the current tag.
	InProgress bool
}

// selectRange picks the interval to enumerate. A HEAD sitting exactly
// on the current tag yields the closed release previous..current;
// anything else yields current..HEAD.
func selectRange(repo *gitlib.Repository, current, previous gitlib.Tag) (Range, error) {
	head, err := repo.Head()
	if err != nil {
		return Range{}, fmt.Errorf("resolve head: %w", err)
	}

	if head == current.Target {
		return Range{
			OldName: previous.Name,
			NewName: current.Name,
			OldHash: previous.Target,
			NewHash: current.Target,
		}, nil
	}

	return Range{
		OldName:    current.Name,
		NewName:    "HEAD",
		OldHash:    current.Target,
		NewHash:    head,
		InProgress: true,
	}, nil
}

// narrowToCurrent rewrites the walk endpoints to current^..current so an
// empty or same-commit range still shows the release commit itself. At
// the root commit the walk pushes current alone and yields exactly it.
func narrowToCurrent(repo *gitlib.Repository, rng Range, current gitlib.Tag) (Range, error) {
	commit, err := repo.LookupCommit(current.Target)
	if err != nil {
		return Range{}, fmt.Errorf("lookup tag commit %s: %w", current.Name, err)
	}

	defer commit.Free()

	rng.NewHash = current.Target

	if commit.IsRoot() {
		rng.OldHash = gitlib.ZeroHash()
	} else {
		rng.OldHash = commit.ParentHash(0)
	}

	return rng, nil
}
