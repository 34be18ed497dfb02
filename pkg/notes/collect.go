package notes

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/Sumatoshi-tech/relfang/pkg/gitlib"
)

// prNumberPattern finds pull request references like "#42" in commit
// messages.
var prNumberPattern = regexp.MustCompile(`#(\d+)`)

// parsePRNumber returns the first #N reference in text, or 0 when there
// is none.
func parsePRNumber(text string) int {
	match := prNumberPattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return 0
	}

	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}

	return n
}

// collectChanges enumerates the interval newest-first in one walk,
// snapshotting each commit and accumulating the unique contributor set
// keyed by exact (name, email) in first-appearance order.
func collectChanges(repo *gitlib.Repository, rng Range) ([]Change, []Contributor, error) {
	iter, err := repo.LogRange(rng.OldHash, rng.NewHash)
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s..%s: %w", rng.OldName, rng.NewName, err)
	}

	defer iter.Close()

	var (
		changes      []Change
		contributors []Contributor
	)

	seen := make(map[Identity]struct{})

	err = iter.ForEach(func(commit *gitlib.Commit) error {
		author := commit.Author()
		id := Identity{Name: author.Name, Email: author.Email}

		changes = append(changes, Change{
			Hash:      commit.Hash().String(),
			ShortHash: commit.Hash().Short(),
			Subject:   commit.Subject(),
			Body:      commit.Body(),
			Author:    Contributor{Identity: id},
			When:      author.When,
			PR:        parsePRNumber(commit.Subject() + "\n" + commit.Body()),
		})

		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}

			contributors = append(contributors, Contributor{Identity: id})
		}

		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("enumerate %s..%s: %w", rng.OldName, rng.NewName, err)
	}

	return changes, contributors, nil
}
