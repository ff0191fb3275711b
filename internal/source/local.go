package source

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/hashicorp/go-hclog"

	"github.com/shipsafe/shipsafe/internal/toon"
	"github.com/shipsafe/shipsafe/internal/types"
)

// IgnoreFileName holds extra exclude globs, one per line, at the target root.
const IgnoreFileName = ".shipsafeignore"

// ignoreDirective skips a whole file when present in its content.
const ignoreDirective = "shipsafe:ignore-file"

// DefaultMaxBytes is the largest file LocalProvider reads.
const DefaultMaxBytes int64 = 1 << 20

// LocalProvider walks a directory tree.
type LocalProvider struct {
	IncludeGlobs    []string
	ExcludeGlobs    []string
	MaxBytes        int64
	DefaultExcludes bool
	Logger          hclog.Logger
}

// NewLocal returns a LocalProvider with default excludes enabled.
func NewLocal(logger hclog.Logger) *LocalProvider {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &LocalProvider{MaxBytes: DefaultMaxBytes, DefaultExcludes: true, Logger: logger}
}

// Fetch implements Provider. Files are returned in walk order with
// slash-separated paths relative to root.
func (p *LocalProvider) Fetch(ctx context.Context, root string) (Snapshot, error) {
	fi, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, fmt.Errorf("%s: %w", root, ErrNotFound)
		}
		return Snapshot{}, err
	}
	if !fi.IsDir() {
		return Snapshot{}, fmt.Errorf("%s is not a directory", root)
	}
	files, err := p.Walk(ctx, root)
	if err != nil {
		return Snapshot{}, err
	}
	repo := localMetadata(root)
	repo.Set(KeyFileCount, strconv.Itoa(len(files)))
	return Snapshot{Repository: repo, Files: files}, nil
}

// Walk collects every eligible text file under root.
func (p *LocalProvider) Walk(ctx context.Context, root string) ([]types.SourceFile, error) {
	maxBytes := p.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	excludes := append(append([]string(nil), p.ExcludeGlobs...), loadIgnore(filepath.Join(root, IgnoreFileName))...)
	var out []types.SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && p.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if rel == IgnoreFileName || !allowedByGlobs(rel, p.IncludeGlobs, excludes) {
			return nil
		}
		if info, _ := d.Info(); info != nil && info.Size() > maxBytes {
			return nil
		}
		if p.DefaultExcludes && isDefaultFileExcluded(strings.ToLower(rel)) {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			p.Logger.Debug("skipping unreadable file", "path", rel, "error", err)
			return nil
		}
		if looksBinary(b) || looksNonTextMIME(rel, b) || strings.Contains(string(b), ignoreDirective) {
			return nil
		}
		out = append(out, types.SourceFile{Path: rel, Content: string(b)})
		return nil
	})
	return out, err
}

func loadIgnore(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, "/") {
			line += "**"
		}
		out = append(out, line)
	}
	return out
}

func looksBinary(b []byte) bool {
	n := 800
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if b[i] == 0 {
			return true
		}
	}
	return false
}

func looksNonTextMIME(path string, b []byte) bool {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		if strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/") {
			return true
		}
		if strings.Contains(ct, "zip") || strings.Contains(ct, "tar") || strings.Contains(ct, "gzip") {
			return true
		}
	}
	if len(b) >= 8 && string(b[:8]) == "\x89PNG\r\n\x1a\n" {
		return true
	}
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

// localMetadata reads branch, head commit and origin remote when root is a
// git work tree. Missing data is left out.
func localMetadata(root string) toon.Record {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	repo := toon.New(KeySource, "local", KeyName, filepath.Base(abs))
	r, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return repo
	}
	if head, err := r.Head(); err == nil {
		if head.Name().IsBranch() {
			repo.Set(KeyBranch, head.Name().Short())
		}
		repo.Set(KeyCommit, head.Hash().String())
	}
	if rem, err := r.Remote("origin"); err == nil && len(rem.Config().URLs) > 0 {
		repo.Set(KeyURL, cleanURL(rem.Config().URLs[0]))
	}
	return repo
}
