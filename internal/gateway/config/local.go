package config

import (
	"os"
	"strings"
)

// localExportConfig targets the docker-compose MinIO when
// EXPORT_MINIO_ENDPOINT is set and the exports directory otherwise.
func localExportConfig() ExportConfig {
	endpoint := strings.TrimSpace(os.Getenv("EXPORT_MINIO_ENDPOINT"))
	cfg := ExportConfig{
		Dir:    firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_DIR")), "exports"),
		Region: firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_REGION")), "us-east-1"),
		Bucket: firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_BUCKET")), "sopflow-documents"),
		UseSSL: false,
	}
	if endpoint == "" {
		return cfg
	}
	cfg.Endpoint = endpoint
	cfg.AccessKey = firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")), "sopflow")
	cfg.SecretKey = firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")), "sopflow123")
	return cfg
}
