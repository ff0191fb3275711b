// Package source loads the files of a scan target, either a local directory
// or a remote git repository, together with a flat repository record.
package source

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

// ErrNotFound is returned when the target repository does not exist or is
// not accessible.
var ErrNotFound = errors.New("repository not found")

// Repository record keys.
const (
	KeyURL           = "url"
	KeySource        = "source"
	KeyHost          = "host"
	KeyOwner         = "owner"
	KeyName          = "name"
	KeyFullName      = "full_name"
	KeyBranch        = "branch"
	KeyCommit        = "commit"
	KeyDefaultBranch = "default_branch"
	KeyLanguage      = "language"
	KeyDescription   = "description"
	KeyStars         = "stars"
	KeyForks         = "forks"
	KeyPrivate       = "private"
	KeyFileCount     = "file_count"
)

// Snapshot is everything a scan needs from its target.
type Snapshot struct {
	Repository toon.Record
	Files      []types.SourceFile
}

// Provider fetches a snapshot of target.
type Provider interface {
	Fetch(ctx context.Context, target string) (Snapshot, error)
}

// Resolver sends existing local directories to Local and everything else to
// Remote. A nil Local never touches the local filesystem.
type Resolver struct {
	Local  Provider
	Remote Provider
}

// Fetch implements Provider.
func (r Resolver) Fetch(ctx context.Context, target string) (Snapshot, error) {
	if r.Local != nil {
		if fi, err := os.Stat(target); err == nil && fi.IsDir() {
			return r.Local.Fetch(ctx, target)
		}
	}
	if r.Remote == nil {
		return Snapshot{}, ErrNotFound
	}
	return r.Remote.Fetch(ctx, target)
}

// cleanURL makes a URL safe as a record value. Colons are allowed in values.
func cleanURL(u string) string {
	return strings.ReplaceAll(u, toon.Delim, "%7C")
}
