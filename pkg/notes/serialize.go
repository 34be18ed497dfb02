package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// Format selects an output encoding for a release notes document.
type Format string

// Supported output formats.
const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatTable    Format = "table"
)

// ErrUnknownFormat reports a format name outside the supported set.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat maps a format flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatMarkdown, FormatJSON, FormatYAML, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Render produces the document in the given format.
func Render(n *ReleaseNotes, format Format) (string, error) {
	switch format {
	case FormatMarkdown:
		return RenderMarkdown(n), nil
	case FormatJSON:
		return renderJSON(n)
	case FormatYAML:
		return renderYAML(n)
	case FormatTable:
		return renderTable(n), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderJSON(n *ReleaseNotes) (string, error) {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}

	return string(data) + "\n", nil
}

func renderYAML(n *ReleaseNotes) (string, error) {
	data, err := yaml.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}

	return string(data), nil
}

// renderTable formats a terminal summary. The title honors the global
// color.NoColor switch.
func renderTable(n *ReleaseNotes) string {
	var b strings.Builder

	b.WriteString(color.New(color.Bold).Sprintf("Release %s (%s)", n.Tag, n.Repository))
	b.WriteByte('\n')
	b.WriteString(n.summary())
	b.WriteString("\n\n")

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Commit", "Subject", "Author", "Age", "PR"})

	for _, change := range n.Changes {
		author := change.Author.Name
		if change.Author.Handle != "" {
			author = "@" + change.Author.Handle
		}

		pr := ""
		if change.PR != 0 {
			pr = fmt.Sprintf("#%d", change.PR)
		}

		tbl.AppendRow(table.Row{change.ShortHash, change.Subject, author, humanize.Time(change.When), pr})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d commits", len(n.Changes))})
	b.WriteString(tbl.Render())
	b.WriteByte('\n')

	return b.String()
}
