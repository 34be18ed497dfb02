package notes

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/Sumatoshi-tech/relfang/pkg/gitlib"
)

// ErrNoTagsFound reports a repository without any tags to anchor a
// release on.
var ErrNoTagsFound = errors.New("no tags found in repository")

// currentTag picks the release the notes describe: the nearest tag
// reachable from HEAD, or the version-highest tag when nothing is
// reachable.
func currentTag(repo *gitlib.Repository) (gitlib.Tag, error) {
	tags, err := repo.Tags()
	if err != nil {
		return gitlib.Tag{}, fmt.Errorf("list tags: %w", err)
	}

	if len(tags) == 0 {
		return gitlib.Tag{}, ErrNoTagsFound
	}

	sortTagsDescending(tags)

	head, err := repo.Head()
	if err != nil {
		return gitlib.Tag{}, fmt.Errorf("resolve head: %w", err)
	}

	name, err := repo.NearestTag(head)
	if err != nil {
		if errors.Is(err, gitlib.ErrNoReachableTag) {
			return tags[0], nil
		}

		return gitlib.Tag{}, fmt.Errorf("describe head: %w", err)
	}

	for _, tag := range tags {
		if tag.Name == name {
			return tag, nil
		}
	}

	return tags[0], nil
}

// previousTag scans tags in descending version order past the current
// tag and returns the first one resolving to a different commit, so
// several tags stacked on one release never produce an empty range.
// Repositories whose only release is the current tag fall back to the
// root commit and the range covers the whole history.
func previousTag(repo *gitlib.Repository, current gitlib.Tag) (gitlib.Tag, error) {
	tags, err := repo.Tags()
	if err != nil {
		return gitlib.Tag{}, fmt.Errorf("list tags: %w", err)
	}

	sortTagsDescending(tags)

	start := 0

	for i, tag := range tags {
		if tag.Name == current.Name {
			start = i + 1

			break
		}
	}

	for _, tag := range tags[start:] {
		if tag.Target != current.Target {
			return tag, nil
		}
	}

	root, err := repo.RootCommit(current.Target)
	if err != nil {
		return gitlib.Tag{}, fmt.Errorf("find root commit: %w", err)
	}

	return gitlib.Tag{Name: root.String(), Target: root}, nil
}

// sortTagsDescending orders tags newest-first by compareTagNames.
func sortTagsDescending(tags []gitlib.Tag) {
	sort.Slice(tags, func(i, j int) bool {
		return compareTagNames(tags[i].Name, tags[j].Name) > 0
	})
}

// compareTagNames orders two tag names version-first: valid semver pairs
// compare as versions, a valid name sorts above an invalid one, and
// anything left ties break lexically.
func compareTagNames(a, b string) int {
	ka, kb := versionKey(a), versionKey(b)
	va, vb := semver.IsValid(ka), semver.IsValid(kb)

	switch {
	case va && vb:
		if c := semver.Compare(ka, kb); c != 0 {
			return c
		}
	case va:
		return 1
	case vb:
		return -1
	}

	return strings.Compare(a, b)
}

// versionKey normalizes a tag name for semver comparison.
func versionKey(name string) string {
	if strings.HasPrefix(name, "v") {
		return name
	}

	return "v" + name
}
