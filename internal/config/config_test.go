package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestLoadFile_Basic(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "shipsafe.yaml", "workers: 4\nmax_bytes: 123\nadvisory: false\ncall_timeout: 5s\nserver:\n  addr: \":9000\"\n")
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Workers == nil || *cfg.Workers != 4 {
		t.Fatalf("expected workers=4, got %#v", cfg.Workers)
	}
	if cfg.MaxBytes == nil || *cfg.MaxBytes != 123 {
		t.Fatalf("expected max_bytes=123, got %#v", cfg.MaxBytes)
	}
	if cfg.Advisory == nil || *cfg.Advisory {
		t.Fatalf("expected advisory=false")
	}
	if got := cfg.GetCallTimeout(); got != 5*time.Second {
		t.Fatalf("expected call_timeout=5s, got %v", got)
	}
	sc := cfg.GetServerConfig()
	if sc.GetAddr() != ":9000" || sc.GetMaxConcurrent() != DefaultMaxConcurrent {
		t.Fatalf("unexpected server config: %q %d", sc.GetAddr(), sc.GetMaxConcurrent())
	}
}

func TestLoadLocal_PrefersDotfile(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "shipsafe.yaml", "workers: 1\n")
	writeTemp(t, dir, ".shipsafe.yaml", "workers: 7\n")
	cfg, err := LoadLocal(dir)
	if err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	if cfg.Workers == nil || *cfg.Workers != 7 {
		t.Fatalf("expected workers=7 from .shipsafe.yaml, got %#v", cfg.Workers)
	}
}

func TestLoadLocal_NoConfig(t *testing.T) {
	if _, err := LoadLocal(t.TempDir()); err == nil {
		t.Fatal("expected error when no local config exists")
	}
}

func TestLoadGlobal_XDG_Config(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "shipsafe")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTemp(t, cfgDir, "config.yml", "workers: 9\n")
	t.Setenv("XDG_CONFIG_HOME", dir)
	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.Workers == nil || *cfg.Workers != 9 {
		t.Fatalf("expected workers=9 from global config, got %#v", cfg.Workers)
	}
}

func TestLoadGlobal_NoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")
	if _, err := LoadGlobal(); err == nil {
		t.Fatal("expected error when no global config dir exists")
	}
}

func TestServerDefaults(t *testing.T) {
	sc := FileConfig{}.GetServerConfig()
	if sc.GetAddr() != DefaultAddr || sc.GetResultTTL() != DefaultResultTTL || sc.GetMaxAge() != DefaultMaxAge {
		t.Fatalf("unexpected defaults: %+v", sc)
	}
	bad := "soon"
	sc.ResultTTL = &bad
	if sc.GetResultTTL() != DefaultResultTTL {
		t.Fatalf("expected fallback for unparsable ttl")
	}
}

func TestStarterRoundTrips(t *testing.T) {
	b, err := yaml.Marshal(Starter())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	p := writeTemp(t, t.TempDir(), ".shipsafe.yml", string(b))
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Alternatives == nil || *cfg.Alternatives != 3 {
		t.Fatalf("expected alternatives=3, got %#v", cfg.Alternatives)
	}
	if cfg.GetServerConfig().GetMaxAge() != time.Hour {
		t.Fatalf("expected max_age=1h")
	}
}

func TestLoadEnvAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, ".env", "AZURE_OPENAI_ENDPOINT=https://example.openai.azure.com\nS3_USE_SSL=true\nS3_BUCKET=reports\n")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")
	t.Setenv("S3_USE_SSL", "")
	t.Setenv("S3_BUCKET", "preset")
	os.Unsetenv("AZURE_OPENAI_ENDPOINT")
	os.Unsetenv("S3_USE_SSL")
	LoadDotEnv(p)
	env := LoadEnv()
	if env.AzureEndpoint != "https://example.openai.azure.com" {
		t.Fatalf("expected endpoint from .env, got %q", env.AzureEndpoint)
	}
	if !env.S3UseSSL {
		t.Fatalf("expected S3_USE_SSL=true")
	}
	if env.S3Bucket != "preset" {
		t.Fatalf("expected existing env to win, got %q", env.S3Bucket)
	}
	if env.HasLLM() {
		t.Fatalf("expected HasLLM=false without key and deployment")
	}
}
