// Package export stores rendered SOP documents outside the session, either
// in a local directory or in an S3-compatible bucket.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"sopflow/internal/safeio"
)

// Exporter writes one document for a session and returns where it went: a
// file path or a URL.
type Exporter interface {
	Export(ctx context.Context, sessionID, name string, content []byte) (string, error)
}

type Config struct {
	Dir string
	S3  S3Config
}

// New picks the S3 exporter when an endpoint is configured and the local
// directory exporter otherwise.
func New(cfg Config) (Exporter, error) {
	if strings.TrimSpace(cfg.S3.Endpoint) != "" {
		return NewS3Exporter(cfg.S3)
	}
	return NewFileExporter(cfg.Dir), nil
}

var reNonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Filename derives a Markdown file name from a process name.
func Filename(processName string) string {
	slug := strings.Trim(reNonSlug.ReplaceAllString(strings.ToLower(processName), "-"), "-")
	if slug == "" {
		slug = "process"
	}
	return slug + ".md"
}

// FileExporter writes documents under Dir/<session>/<name>.
type FileExporter struct {
	Dir string
}

func NewFileExporter(dir string) *FileExporter {
	if strings.TrimSpace(dir) == "" {
		dir = "exports"
	}
	return &FileExporter{Dir: dir}
}

func (e *FileExporter) Export(_ context.Context, sessionID, name string, content []byte) (string, error) {
	key, err := objectKey(sessionID, name)
	if err != nil {
		return "", err
	}
	fsys, err := safeio.NewSafeFS(e.Dir)
	if err != nil {
		return "", fmt.Errorf("open export dir: %w", err)
	}
	path, err := fsys.SafeWriteFile(filepath.FromSlash(key), content)
	if err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// objectKey joins session and name into a relative key, rejecting names that
// would escape the session prefix.
func objectKey(sessionID, name string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	if name == "" {
		return "", fmt.Errorf("document name is required")
	}
	if strings.Contains(sessionID, "/") || strings.Contains(sessionID, "..") {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid document name %q", name)
		}
	}
	return sessionID + "/" + name, nil
}
