package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	Env              string
	SettingsPath     string
	SessionCacheSize int
	AllowedOrigins   []string
	LLM              LLMConfig
	Export           ExportConfig
}

// LLMConfig controls the middleware wrapped around every provider.
type LLMConfig struct {
	Timeout time.Duration
	Retries int
	RPS     float64
	Burst   int
	Offline bool
}

type ExportConfig struct {
	Dir       string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{
		Port:             normalizePort(firstNonEmpty(os.Getenv("PORT"), ":8080")),
		Env:              env,
		SettingsPath:     firstNonEmpty(strings.TrimSpace(os.Getenv("SOPFLOW_SETTINGS")), "sopflow.yaml"),
		SessionCacheSize: envInt("SESSION_CACHE_SIZE", 256),
		AllowedOrigins:   splitList(firstNonEmpty(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		LLM: LLMConfig{
			Timeout: envDuration("LLM_TIMEOUT", 2*time.Minute),
			Retries: envInt("LLM_RETRIES", 0),
			RPS:     envFloat("LLM_RPS", 0),
			Burst:   envInt("LLM_BURST", 0),
			Offline: envBool("SOPFLOW_OFFLINE", false),
		},
		Export: loadExportConfig(env),
	}
	return cfg, nil
}

func loadExportConfig(env string) ExportConfig {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return localExportConfig()
	}
	return ExportConfig{
		Dir:       firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_DIR")), "exports"),
		Endpoint:  strings.TrimSpace(os.Getenv("EXPORT_S3_ENDPOINT")),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_BUCKET")), "sopflow-documents"),
		UseSSL:    envBool("EXPORT_S3_USE_SSL", true),
	}
}

func normalizePort(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, ":") || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
