package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Env holds secrets and endpoints that only come from the environment.
type Env struct {
	AzureEndpoint   string
	AzureKey        string
	AzureDeployment string
	GitHubToken     string
	NVDAPIKey       string
	DatabaseURL     string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3UseSSL        bool
	S3Bucket        string
	LogLevel        string
	HTTPAddr        string
}

// DotEnvFiles are loaded by LoadDotEnv when present, first file wins.
var DotEnvFiles = []string{".env.local", ".env"}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = DotEnvFiles
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// LoadEnv reads Env from the process environment.
func LoadEnv() Env {
	return Env{
		AzureEndpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureKey:        os.Getenv("AZURE_OPENAI_KEY"),
		AzureDeployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
		GitHubToken:     os.Getenv("GITHUB_TOKEN"),
		NVDAPIKey:       os.Getenv("NVD_API_KEY"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:        getBool("S3_USE_SSL", false),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		LogLevel:        os.Getenv("SHIPSAFE_LOG_LEVEL"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
	}
}

// HasLLM reports whether an Azure OpenAI deployment is configured.
func (e Env) HasLLM() bool {
	return e.AzureEndpoint != "" && e.AzureKey != "" && e.AzureDeployment != ""
}

// HasArchive reports whether S3 upload is configured.
func (e Env) HasArchive() bool {
	return e.S3Endpoint != "" && e.S3Bucket != ""
}
