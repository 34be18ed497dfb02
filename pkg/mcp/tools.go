package mcp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/relfang/pkg/notes"
)

// Tool name constants.
const (
	// ToolNameGenerate is the release notes generation tool.
	ToolNameGenerate = "generate_release_notes"
)

// Validation errors for tool inputs.
var (
	// ErrEmptyRepoPath indicates the repo_path parameter was empty.
	ErrEmptyRepoPath = errors.New("repo_path parameter is required and must not be empty")

	// ErrRepoPathNotAbsolute indicates the repo_path was not absolute.
	ErrRepoPathNotAbsolute = errors.New("repo_path must be an absolute path")

	// ErrRepoNotFound indicates the repository path does not exist.
	ErrRepoNotFound = errors.New("repository path does not exist")

	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("path is not a git repository")
)

// GenerateInput is the input schema for the generate_release_notes tool.
type GenerateInput struct {
	// RepoPath is the absolute path to the local Git repository.
	RepoPath string `json:"repo_path" jsonschema:"absolute path to the local Git repository"`

	// RepoSlug is the owner/repo pair used in hyperlinks.
	RepoSlug string `json:"repo_slug" jsonschema:"repository slug in owner/repo form"`

	// Format selects the output format. Empty means markdown.
	Format string `json:"format,omitempty" jsonschema:"output format: markdown, json, yaml or table"`
}

// ToolOutput is the structured output payload for tool responses.
type ToolOutput struct {
	Data any `json:"data"`
}

// errorResult creates an error CallToolResult with the given error message.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
	}, ToolOutput{}, nil
}

// textResult creates a successful CallToolResult carrying the rendered text
// plus the structured value.
func textResult(text string, value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}, ToolOutput{Data: value}, nil
}

// validateRepoPath checks that the path is absolute and points at a git
// repository.
func validateRepoPath(repoPath string) error {
	if repoPath == "" {
		return ErrEmptyRepoPath
	}

	if !filepath.IsAbs(repoPath) {
		return fmt.Errorf("%w: %s", ErrRepoPathNotAbsolute, repoPath)
	}

	info, err := os.Stat(repoPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRepoNotFound, repoPath)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRepoNotFound, repoPath)
	}

	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, repoPath)
	}

	return nil
}

// validateGenerateInput validates a generate_release_notes request and
// returns the parsed slug and output format.
func validateGenerateInput(input GenerateInput) (notes.Slug, notes.Format, error) {
	if err := validateRepoPath(input.RepoPath); err != nil {
		return notes.Slug{}, "", err
	}

	slug, err := notes.ParseSlug(input.RepoSlug)
	if err != nil {
		return notes.Slug{}, "", err
	}

	if input.Format == "" {
		return slug, notes.FormatMarkdown, nil
	}

	format, err := notes.ParseFormat(input.Format)
	if err != nil {
		return notes.Slug{}, "", err
	}

	return slug, format, nil
}
