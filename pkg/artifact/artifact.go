// Package artifact persists composed documents as Markdown files named
// after the run date and the idea.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// MaxSlugLen bounds the idea part of a file name.
const MaxSlugLen = 50

// DefaultDir is where documents go when no directory is configured.
const DefaultDir = "output"

var (
	unsafeChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Slugify converts text to a file-name-safe slug of at most maxLen bytes
// with no trailing hyphen. It returns "spec" when nothing usable remains.
func Slugify(text string, maxLen int) string {
	slug := strings.TrimSpace(strings.ToLower(text))
	slug = unsafeChars.ReplaceAllString(slug, "")
	slug = whitespace.ReplaceAllString(slug, "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	slug = strings.TrimRight(slug, "-")
	if slug == "" {
		return "spec"
	}
	return slug
}

// Store writes documents under a directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// Path returns where the document for idea is written today:
// <dir>/<YYYY-MM-DD>-<slug>.md.
func (s *Store) Path(idea string) string {
	name := s.now().Format("2006-01-02") + "-" + Slugify(idea, MaxSlugLen) + ".md"
	return filepath.Join(s.dir, name)
}

// Save writes text for idea and returns the path. An existing file with
// the same name is replaced.
func (s *Store) Save(idea, text string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := s.Path(idea)

	tmp, err := os.CreateTemp(s.dir, ".spec-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing document: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("setting document mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming document: %w", err)
	}
	return path, nil
}
