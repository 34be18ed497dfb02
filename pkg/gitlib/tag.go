package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrNoReachableTag is returned when describe finds no tag in the ancestry
// of the given commit.
var ErrNoReachableTag = errors.New("no reachable tag")

// Tag is a named pointer to a commit. Annotated tags are peeled so Target
// always identifies the commit the tag ultimately references.
type Tag struct {
	Name   string
	Target Hash
}

// Tags returns all tags in the repository with their peeled targets. The
// order of the returned slice is whatever libgit2 reports; callers sort.
func (r *Repository) Tags() ([]Tag, error) {
	names, err := r.repo.Tags.List()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	tags := make([]Tag, 0, len(names))

	for _, name := range names {
		target, resolveErr := r.resolveTag(name)
		if resolveErr != nil {
			return nil, resolveErr
		}

		tags = append(tags, Tag{Name: name, Target: target})
	}

	return tags, nil
}

// resolveTag resolves a tag name to the commit it points at, peeling
// annotated tags down to the commit object.
func (r *Repository) resolveTag(name string) (Hash, error) {
	ref, err := r.repo.References.Lookup("refs/tags/" + name)
	if err != nil {
		return Hash{}, fmt.Errorf("lookup tag %s: %w", name, err)
	}
	defer ref.Free()

	obj, err := ref.Peel(git2go.ObjectCommit)
	if err != nil {
		return Hash{}, fmt.Errorf("peel tag %s: %w", name, err)
	}
	defer obj.Free()

	return HashFromOid(obj.Id()), nil
}

// NearestTag returns the name of the closest tag reachable from the commit,
// as git describe reports it with zero abbreviation.
func (r *Repository) NearestTag(hash Hash) (string, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return "", fmt.Errorf("lookup commit: %w", err)
	}
	defer commit.Free()

	opts, err := git2go.DefaultDescribeOptions()
	if err != nil {
		return "", fmt.Errorf("get describe options: %w", err)
	}

	opts.Strategy = git2go.DescribeTags

	result, describeErr := commit.Describe(&opts)
	if describeErr != nil {
		return "", fmt.Errorf("%w: %v", ErrNoReachableTag, describeErr)
	}
	defer result.Free()

	fmtOpts, err := git2go.DefaultDescribeFormatOptions()
	if err != nil {
		return "", fmt.Errorf("get describe format options: %w", err)
	}

	// Zero abbreviation makes describe report the bare tag name.
	fmtOpts.AbbreviatedSize = 0

	name, err := result.Format(&fmtOpts)
	if err != nil {
		return "", fmt.Errorf("format describe result: %w", err)
	}

	return name, nil
}
