// Package update checks GitHub releases for a newer shipsafe version, caching
// the answer for a day under the user config directory.
package update

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	semver "github.com/blang/semver/v4"
	"github.com/go-resty/resty/v2"
)

const (
	// Repo is the GitHub slug releases are published under.
	Repo          = "shipsafe/shipsafe"
	cacheFileName = "update.json"
	cacheTTL      = 24 * time.Hour
)

// DefaultLatestURL is the releases endpoint for Repo.
var DefaultLatestURL = "https://api.github.com/repos/" + Repo + "/releases/latest"

type cache struct {
	LastChecked time.Time `json:"last_checked"`
	Latest      string    `json:"latest"`
}

// Checker asks LatestURL for the newest release.
type Checker struct {
	LatestURL string
	Timeout   time.Duration
}

func configDir() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "shipsafe")
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "shipsafe")
}

func loadCache() (cache, error) {
	var c cache
	dir := configDir()
	if dir == "" {
		return c, errors.New("no config dir")
	}
	b, err := os.ReadFile(filepath.Join(dir, cacheFileName))
	if err != nil {
		return c, err
	}
	_ = json.Unmarshal(b, &c)
	return c, nil
}

func saveCache(c cache) {
	dir := configDir()
	if dir == "" {
		return
	}
	_ = os.MkdirAll(dir, 0o755)
	b, _ := json.MarshalIndent(c, "", "  ")
	_ = os.WriteFile(filepath.Join(dir, cacheFileName), b, 0o644)
}

// Latest fetches the newest release tag without touching the cache.
func (c Checker) Latest() (string, error) {
	url := c.LatestURL
	if url == "" {
		url = DefaultLatestURL
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	var obj struct {
		TagName string `json:"tag_name"`
		Name    string `json:"name"`
	}
	resp, err := resty.New().SetTimeout(timeout).R().
		SetHeader("User-Agent", "shipsafe-updater").
		SetResult(&obj).
		Get(url)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", errors.New("release lookup: " + resp.Status())
	}
	v := obj.TagName
	if v == "" {
		v = obj.Name
	}
	return normalize(v), nil
}

// Check returns (latest, isNewer, error). It uses a 24h cache and skips in CI.
func (c Checker) Check(current string, noNetwork bool) (string, bool, error) {
	if os.Getenv("CI") != "" || noNetwork {
		return "", false, nil
	}
	current = normalize(current)
	cached, _ := loadCache()
	latest := cached.Latest
	if time.Since(cached.LastChecked) > cacheTTL || latest == "" {
		if v, err := c.Latest(); err == nil && v != "" {
			latest = v
			saveCache(cache{LastChecked: time.Now(), Latest: latest})
		}
	}
	if latest == "" || current == "" {
		return latest, false, nil
	}
	return latest, compare(latest, current) > 0, nil
}

// Check uses the default Checker.
func Check(current string, noNetwork bool) (string, bool, error) {
	return Checker{}.Check(current, noNetwork)
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	return strings.TrimPrefix(v, "v")
}

// compare orders two versions; unparsable versions sort lowest.
func compare(a, b string) int {
	av, aerr := semver.ParseTolerant(a)
	bv, berr := semver.ParseTolerant(b)
	switch {
	case aerr != nil && berr != nil:
		return 0
	case aerr != nil:
		return -1
	case berr != nil:
		return 1
	}
	return av.Compare(bv)
}
