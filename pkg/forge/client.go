// Package forge resolves commit author identities to forge handles
// through the GitHub user search API. Resolution is best-effort: every
// failure degrades to the plain author name.
package forge

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/google/go-github/v32/github"
	"golang.org/x/oauth2"
)

// Environment variables consulted for the API token, in order.
const (
	TokenEnv         = "RELFANG_GITHUB_TOKEN"
	FallbackTokenEnv = "GITHUB_TOKEN"
)

// TokenFromEnv returns the configured API token. TokenEnv wins over
// FallbackTokenEnv; both unset returns an empty string.
func TokenFromEnv() string {
	if token := os.Getenv(TokenEnv); token != "" {
		return token
	}

	return os.Getenv(FallbackTokenEnv)
}

// NewClient builds a GitHub API client carrying the token as an oauth2
// static source. An empty token yields an unauthenticated client.
// A non-empty baseURL routes requests to an enterprise host instead of
// the public API.
func NewClient(ctx context.Context, token, baseURL string) (*github.Client, error) {
	var httpClient *http.Client

	if token != "" {
		source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, source)
	}

	if baseURL == "" {
		return github.NewClient(httpClient), nil
	}

	client, err := github.NewEnterpriseClient(baseURL, baseURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("parse forge base url: %w", err)
	}

	return client, nil
}
