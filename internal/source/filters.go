package source

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var defaultExcludeDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"coverage":     true,
	"bin":          true,
	"obj":          true,
}

// suffixes treated as non-text or generated
var defaultExcludeFileSuffixes = []string{
	".min.js", ".map",
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico",
	".pdf", ".zip", ".gz", ".tar", ".tgz", ".7z",
	".jar", ".class", ".exe", ".dll", ".so",
	".wasm", ".pyc",
	".pb.go", ".gen.go",
}

var defaultExcludeFileNames = map[string]bool{
	"yarn.lock":         true,
	"package-lock.json": true,
	"pnpm-lock.yaml":    true,
	"composer.lock":     true,
	"poetry.lock":       true,
	"go.sum":            true,
	".DS_Store":         true,
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name] || strings.HasPrefix(name, ".git")
}

func isDefaultFileExcluded(lowerRel string) bool {
	if strings.HasSuffix(lowerRel, ".lock") {
		return true
	}
	for _, s := range defaultExcludeFileSuffixes {
		if strings.HasSuffix(lowerRel, s) {
			return true
		}
	}
	if strings.Contains(lowerRel, ".gen.") {
		return true
	}
	return defaultExcludeFileNames[filepath.Base(lowerRel)]
}

// allowedByGlobs applies include globs as a positive filter, then subtracts
// exclude globs. Paths use forward slashes.
func allowedByGlobs(relPath string, includes, excludes []string) bool {
	rp := filepath.ToSlash(relPath)
	if len(includes) > 0 && !matchAnyGlob(rp, expandGlobs(includes)) {
		return false
	}
	return !(len(excludes) > 0 && matchAnyGlob(rp, expandGlobs(excludes)))
}

// ParseGlobs splits a comma-separated glob list.
func ParseGlobs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func expandGlobs(globs []string) []string {
	out := make([]string, 0, 2*len(globs))
	for _, g := range globs {
		out = append(out, g, trimGlobPrefix(g))
	}
	return out
}

func matchAnyGlob(p string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, p); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(p)); ok {
			return true
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	s := strings.TrimPrefix(g, "./")
	for strings.HasPrefix(s, "**/") {
		s = strings.TrimPrefix(s, "**/")
	}
	return s
}
