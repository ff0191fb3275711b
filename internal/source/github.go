package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v47/github"

	"github.com/shipsafe/shipsafe/internal/toon"
)

// GitHubMetadata reads repository metadata from the GitHub REST API.
type GitHubMetadata struct {
	client *github.Client
}

type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(r)
}

// NewGitHubMetadata creates a client; an empty token uses anonymous access.
func NewGitHubMetadata(token string) *GitHubMetadata {
	var hc *http.Client
	if token != "" {
		hc = &http.Client{Transport: tokenTransport{token: token, base: http.DefaultTransport}}
	}
	return &GitHubMetadata{client: github.NewClient(hc)}
}

// WithBaseURL points the client at another API root, such as GitHub
// Enterprise.
func (m *GitHubMetadata) WithBaseURL(raw string) (*GitHubMetadata, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse github base url: %w", err)
	}
	m.client.BaseURL = u
	return m, nil
}

// Lookup returns the repository metadata record for owner/name.
func (m *GitHubMetadata) Lookup(ctx context.Context, owner, name string) (toon.Record, error) {
	repo, _, err := m.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		var er *github.ErrorResponse
		if errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound {
			return toon.Record{}, fmt.Errorf("%s/%s: %w", owner, name, ErrNotFound)
		}
		return toon.Record{}, fmt.Errorf("github repository %s/%s: %w", owner, name, err)
	}
	rec := toon.New(
		KeyFullName, repo.GetFullName(),
		KeyDefaultBranch, repo.GetDefaultBranch(),
		KeyStars, strconv.Itoa(repo.GetStargazersCount()),
		KeyForks, strconv.Itoa(repo.GetForksCount()),
		KeyPrivate, strconv.FormatBool(repo.GetPrivate()),
	)
	if lang := repo.GetLanguage(); lang != "" {
		rec.Set(KeyLanguage, toon.Scrub(lang))
	}
	if d := repo.GetDescription(); d != "" {
		rec.Set(KeyDescription, toon.Scrub(d))
	}
	return rec, nil
}
