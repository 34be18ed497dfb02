package notes

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRepoSlug reports a repository argument that is not an
// owner/repo pair.
var ErrInvalidRepoSlug = errors.New("invalid repository slug")

// Slug is the owner/repo pair hyperlinks are built from.
type Slug struct {
	Owner string `json:"owner" yaml:"owner"`
	Repo  string `json:"repo" yaml:"repo"`
}

// ParseSlug validates an owner/repo argument: exactly one slash
// separating two non-empty halves.
func ParseSlug(s string) (Slug, error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return Slug{}, fmt.Errorf("%w: %q (want owner/repo)", ErrInvalidRepoSlug, s)
	}

	return Slug{Owner: owner, Repo: repo}, nil
}

// String returns the owner/repo form.
func (s Slug) String() string { return s.Owner + "/" + s.Repo }

// Identity is the exact (name, email) pair that identifies an author.
type Identity struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// Contributor is an author appearing in the range, with the forge handle
// attribution resolved for them, if any.
type Contributor struct {
	Identity

	Handle string `json:"handle,omitempty" yaml:"handle,omitempty"`
}

// Change is a read-only snapshot of one commit in the range.
type Change struct {
	Hash      string      `json:"hash" yaml:"hash"`
	ShortHash string      `json:"short_hash" yaml:"short_hash"`
	Subject   string      `json:"subject" yaml:"subject"`
	Body      string      `json:"body,omitempty" yaml:"body,omitempty"`
	Author    Contributor `json:"author" yaml:"author"`
	When      time.Time   `json:"when" yaml:"when"`
	PR        int         `json:"pr,omitempty" yaml:"pr,omitempty"`
}

// ReleaseNotes is the assembled document for one release range. Every
// output format derives from it.
type ReleaseNotes struct {
	// Repository is the owner/repo slug hyperlinks point at.
	Repository string `json:"repository" yaml:"repository"`

	// Host is the forge host serving those hyperlinks.
	Host string `json:"host" yaml:"host"`

	// Tag is the release the document describes.
	Tag string `json:"tag" yaml:"tag"`

	// PreviousRef is the old comparison endpoint: the previous tag name
	// or the root commit hash.
	PreviousRef string `json:"previous_ref" yaml:"previous_ref"`

	// CurrentRef is the new comparison endpoint: the current tag name,
	// or HEAD when the range is still in progress.
	CurrentRef string `json:"current_ref" yaml:"current_ref"`

	// Tip is the full hash of the newest commit in the range.
	Tip string `json:"tip" yaml:"tip"`

	// Changes lists the commits in the range, newest first.
	Changes []Change `json:"changes" yaml:"changes"`

	// Contributors lists the unique authors in first-appearance order.
	Contributors []Contributor `json:"contributors" yaml:"contributors"`
}
