package notes

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize/english"

	"github.com/Sumatoshi-tech/relfang/pkg/gitlib"
)

// RenderMarkdown produces the default document layout: title, metadata
// line, summary counts, the change list, the contributor list and the
// closing comparison link.
func RenderMarkdown(n *ReleaseNotes) string {
	var b strings.Builder

	repoURL := n.repoURL()

	fmt.Fprintf(&b, "# Release %s\n\n", n.Tag)
	fmt.Fprintf(&b, "[%s](%s) · [%s](%s/releases/tag/%s) · [%s](%s/commit/%s)\n\n",
		n.Repository, repoURL, n.Tag, repoURL, n.Tag, shortHash(n.Tip), repoURL, n.Tip)
	fmt.Fprintf(&b, "%s\n\n", n.summary())

	b.WriteString("## What's Changed\n\n")

	if len(n.Changes) == 0 {
		b.WriteString("- No changes in this range.\n")
	}

	for _, change := range n.Changes {
		fmt.Fprintf(&b, "- [%s](%s/commit/%s) %s (%s)",
			change.ShortHash, repoURL, change.Hash, change.Subject, displayName(change.Author, n.Host))

		if change.PR != 0 {
			fmt.Fprintf(&b, " ([#%d](%s/pull/%d))", change.PR, repoURL, change.PR)
		}

		b.WriteByte('\n')
	}

	if len(n.Contributors) > 0 {
		b.WriteString("\n## New Contributors\n\n")

		for _, c := range n.Contributors {
			fmt.Fprintf(&b, "- %s\n", displayName(c, n.Host))
		}
	}

	fmt.Fprintf(&b, "\n**Full Changelog**: %s/compare/%s...%s\n", repoURL, n.PreviousRef, n.CurrentRef)

	return b.String()
}

// summary is the counts line shared by the markdown and table layouts.
func (n *ReleaseNotes) summary() string {
	return fmt.Sprintf("%s by %s.",
		english.Plural(len(n.Changes), "commit", ""),
		english.Plural(len(n.Contributors), "contributor", ""))
}

// repoURL is the base hyperlink for the repository.
func (n *ReleaseNotes) repoURL() string {
	return "https://" + n.Host + "/" + n.Repository
}

// displayName renders a contributor: a profile link when a handle
// resolved, the plain name otherwise.
func displayName(c Contributor, host string) string {
	if c.Handle != "" {
		return fmt.Sprintf("[@%s](https://%s/%s)", c.Handle, host, c.Handle)
	}

	return c.Name
}

// shortHash abbreviates a full hex hash for link text.
func shortHash(hash string) string {
	if len(hash) <= gitlib.ShortHexSize {
		return hash
	}

	return hash[:gitlib.ShortHexSize]
}
