package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gitsight/go-vcsurl"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/hashicorp/go-hclog"

	"github.com/shipsafe/shipsafe/internal/toon"
)

// GitProvider shallow-clones a remote repository into a temporary directory
// and walks it with Local.
type GitProvider struct {
	Token    string
	WorkDir  string
	Local    *LocalProvider
	Metadata *GitHubMetadata
	Logger   hclog.Logger
}

// NewGit returns a GitProvider. token is optional and used for HTTPS basic
// auth and GitHub metadata.
func NewGit(token string, logger hclog.Logger) *GitProvider {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &GitProvider{
		Token:    token,
		Local:    NewLocal(logger),
		Metadata: NewGitHubMetadata(token),
		Logger:   logger,
	}
}

// Remote is the parsed form of a repository URL.
type Remote struct {
	Host     string
	Owner    string
	Name     string
	FullName string
	CloneURL string
}

// ParseRemote accepts https, ssh and scp-style repository URLs.
func ParseRemote(target string) (Remote, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Remote{}, errors.New("empty repository url")
	}
	info, err := vcsurl.Parse(target)
	if err != nil {
		return Remote{}, fmt.Errorf("parse repository url %q: %w", target, err)
	}
	clone, err := info.Remote(vcsurl.HTTPS)
	if err != nil {
		clone = fmt.Sprintf("https://%s/%s.git", info.Host, info.FullName)
	}
	return Remote{
		Host:     string(info.Host),
		Owner:    info.Username,
		Name:     info.Name,
		FullName: info.FullName,
		CloneURL: clone,
	}, nil
}

// IsRemote reports whether target names a remote repository rather than a
// path on this machine.
func IsRemote(target string) bool {
	t := strings.TrimSpace(target)
	if t == "" || strings.ContainsRune(t, '\\') {
		return false
	}
	for _, p := range []string{"/", ".", "~", "file:"} {
		if strings.HasPrefix(t, p) {
			return false
		}
	}
	_, err := ParseRemote(t)
	return err == nil
}

// Fetch implements Provider.
func (g *GitProvider) Fetch(ctx context.Context, target string) (Snapshot, error) {
	if !IsRemote(target) {
		return Snapshot{}, fmt.Errorf("%q is not a remote repository: %w", target, ErrNotFound)
	}
	rem, err := ParseRemote(target)
	if err != nil {
		return Snapshot{}, err
	}
	dir, err := os.MkdirTemp(g.WorkDir, "shipsafe-clone-")
	if err != nil {
		return Snapshot{}, fmt.Errorf("create clone dir: %w", err)
	}
	defer os.RemoveAll(dir)

	opts := &git.CloneOptions{URL: rem.CloneURL, Depth: 1, SingleBranch: true}
	if g.Token != "" {
		opts.Auth = &http.BasicAuth{Username: "x-access-token", Password: g.Token}
	}
	g.Logger.Info("cloning repository", "repo", rem.FullName, "host", rem.Host)
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		if errors.Is(err, transport.ErrRepositoryNotFound) || errors.Is(err, transport.ErrAuthenticationRequired) {
			return Snapshot{}, fmt.Errorf("%s: %w", rem.FullName, ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("clone %s: %w", rem.FullName, err)
	}

	local := g.Local
	if local == nil {
		local = NewLocal(g.Logger)
	}
	files, err := local.Walk(ctx, dir)
	if err != nil {
		return Snapshot{}, err
	}

	rec := toon.New(
		KeySource, "git",
		KeyURL, cleanURL(target),
		KeyHost, rem.Host,
		KeyOwner, rem.Owner,
		KeyName, rem.Name,
		KeyFullName, rem.FullName,
	)
	if head, err := repo.Head(); err == nil {
		if head.Name().IsBranch() {
			rec.Set(KeyBranch, head.Name().Short())
		}
		rec.Set(KeyCommit, head.Hash().String())
	}
	if g.Metadata != nil && rem.Host == "github.com" {
		meta, err := g.Metadata.Lookup(ctx, rem.Owner, rem.Name)
		if err != nil {
			g.Logger.Warn("repository metadata unavailable", "repo", rem.FullName, "error", err)
		} else {
			rec.Merge(meta)
		}
	}
	rec.Set(KeyFileCount, fmt.Sprint(len(files)))
	return Snapshot{Repository: rec, Files: files}, nil
}
