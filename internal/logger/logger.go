// Package logger builds the hclog loggers shared by the CLI and the server.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// EnvLevel overrides any configured level.
const EnvLevel = "SHIPSAFE_LOG_LEVEL"

// Level resolves the effective level: the environment wins over the
// configured value, and anything unparsable falls back to INFO.
func Level(configured string) hclog.Level {
	for _, s := range []string{os.Getenv(EnvLevel), configured} {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if lvl := hclog.LevelFromString(s); lvl != hclog.NoLevel {
			return lvl
		}
	}
	return hclog.Info
}

// New returns a named logger writing to stderr.
func New(name, level string, json bool) hclog.Logger {
	return NewTo(os.Stderr, name, level, json)
}

// NewTo is New with an explicit output.
func NewTo(w io.Writer, name, level string, json bool) hclog.Logger {
	if name == "" {
		name = "shipsafe"
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Output:     w,
		Level:      Level(level),
		JSONFormat: json,
	})
}
