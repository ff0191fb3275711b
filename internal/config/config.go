package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for ShipSafe.
type FileConfig struct {
	Include         *string `yaml:"include"`
	Exclude         *string `yaml:"exclude"`
	MaxBytes        *int64  `yaml:"max_bytes"`
	DefaultExcludes *bool   `yaml:"default_excludes"`
	NoColor         *bool   `yaml:"no_color"`
	LogLevel        *string `yaml:"log_level"`

	// Pipeline tuning
	Workers      *int    `yaml:"workers"`
	CallTimeout  *string `yaml:"call_timeout"`
	Alternatives *int    `yaml:"alternatives"`
	Classifier   *string `yaml:"classifier"`
	Advisory     *bool   `yaml:"advisory"`

	// CI behaviour
	FailOn   *string `yaml:"fail_on"`
	Output   *string `yaml:"output"`
	Baseline *string `yaml:"baseline"`

	Server  *ServerConfig  `yaml:"server"`
	Archive *ArchiveConfig `yaml:"archive"`
}

// ServerConfig holds `shipsafe serve` settings.
type ServerConfig struct {
	Addr          *string `yaml:"addr"`
	MaxConcurrent *int    `yaml:"max_concurrent"`
	// ResultTTL is how long a finished scan is kept after its first read.
	ResultTTL *string `yaml:"result_ttl"`
	// MaxAge evicts any scan older than this.
	MaxAge *string `yaml:"max_age"`
}

// ArchiveConfig selects where final reports are uploaded.
type ArchiveConfig struct {
	Bucket *string `yaml:"bucket"`
	Prefix *string `yaml:"prefix"`
}

// Names searched by LoadLocal, in order.
var localNames = []string{".shipsafe.yml", ".shipsafe.yaml", "shipsafe.yml", "shipsafe.yaml"}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadLocal searches for a repo-local config file in the given root.
func LoadLocal(repoRoot string) (FileConfig, error) {
	for _, name := range localNames {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return FileConfig{}, errors.New("no local config")
}

// GlobalPath returns the global config location under XDG_CONFIG_HOME or
// ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "shipsafe", "config.yml"), nil
}

// LoadGlobal loads the global config file.
func LoadGlobal() (FileConfig, error) {
	p, err := GlobalPath()
	if err != nil {
		return FileConfig{}, err
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return FileConfig{}, errors.New("no global config")
}

// Server defaults.
const (
	DefaultAddr          = ":8000"
	DefaultMaxConcurrent = 4
	DefaultResultTTL     = 10 * time.Minute
	DefaultMaxAge        = time.Hour
)

// GetServerConfig returns the server section with defaults applied.
func (fc FileConfig) GetServerConfig() ServerConfig {
	var sc ServerConfig
	if fc.Server != nil {
		sc = *fc.Server
	}
	if sc.Addr == nil {
		addr := DefaultAddr
		sc.Addr = &addr
	}
	if sc.MaxConcurrent == nil {
		n := DefaultMaxConcurrent
		sc.MaxConcurrent = &n
	}
	return sc
}

// GetAddr returns the listen address.
func (sc ServerConfig) GetAddr() string {
	if sc.Addr == nil || *sc.Addr == "" {
		return DefaultAddr
	}
	return *sc.Addr
}

// GetMaxConcurrent returns the scan concurrency bound.
func (sc ServerConfig) GetMaxConcurrent() int {
	if sc.MaxConcurrent == nil || *sc.MaxConcurrent <= 0 {
		return DefaultMaxConcurrent
	}
	return *sc.MaxConcurrent
}

// GetResultTTL parses result_ttl, falling back to the default.
func (sc ServerConfig) GetResultTTL() time.Duration {
	return parseDuration(sc.ResultTTL, DefaultResultTTL)
}

// GetMaxAge parses max_age, falling back to the default.
func (sc ServerConfig) GetMaxAge() time.Duration {
	return parseDuration(sc.MaxAge, DefaultMaxAge)
}

// GetCallTimeout parses call_timeout; zero means unset.
func (fc FileConfig) GetCallTimeout() time.Duration {
	return parseDuration(fc.CallTimeout, 0)
}

func parseDuration(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Starter returns the configuration written by `shipsafe config init`.
func Starter() FileConfig {
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }
	yes := true
	maxBytes := int64(1 << 20)
	return FileConfig{
		MaxBytes:        &maxBytes,
		DefaultExcludes: &yes,
		LogLevel:        str("info"),
		Workers:         num(8),
		CallTimeout:     str("30s"),
		Alternatives:    num(3),
		Classifier:      str("llm"),
		Advisory:        &yes,
		FailOn:          str("high"),
		Output:          str("table"),
		Server: &ServerConfig{
			Addr:          str(DefaultAddr),
			MaxConcurrent: num(DefaultMaxConcurrent),
			ResultTTL:     str("10m"),
			MaxAge:        str("1h"),
		},
	}
}
