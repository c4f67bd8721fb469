package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Build a code review agent that reviews PRs", "build-a-code-review-agent-that-reviews-prs"},
		{"  Build X  ", "build-x"},
		{"Agent: research & report!", "agent-research-report"},
		{"multi\tline\nidea", "multi-line-idea"},
		{"already-hyphenated idea", "already-hyphenated-idea"},
		{"¿Qué tal?", "qu-tal"},
		{"!!!", "spec"},
		{"", "spec"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in, MaxSlugLen); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyTruncatesWithoutTrailingHyphen(t *testing.T) {
	idea := "Build an agent that watches every repository in the organisation and files issues"
	got := Slugify(idea, MaxSlugLen)
	if len(got) > MaxSlugLen {
		t.Fatalf("slug longer than %d: %q", MaxSlugLen, got)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("slug must not end with a hyphen: %q", got)
	}
	idea = strings.Repeat("a", 49) + " tail"
	if got := Slugify(idea, MaxSlugLen); got != strings.Repeat("a", 49) {
		t.Errorf("unexpected slug %q", got)
	}
}

func fixedStore(dir string) *Store {
	s := NewStore(dir)
	s.now = func() time.Time { return time.Date(2026, 3, 9, 15, 4, 5, 0, time.UTC) }
	return s
}

func TestPath(t *testing.T) {
	s := fixedStore("out")
	want := filepath.Join("out", "2026-03-09-build-x.md")
	if got := s.Path("Build X"); got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
	if NewStore("").Dir() != DefaultDir {
		t.Errorf("expected default dir")
	}
}

func TestSaveWritesDocument(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	s := fixedStore(dir)

	path, err := s.Save("Build X", "# Doc\n")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# Doc\n" {
		t.Errorf("unexpected content %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files must not be left behind, found %d entries", len(entries))
	}
}

func TestSaveSameSlugOverwrites(t *testing.T) {
	s := fixedStore(t.TempDir())
	first, err := s.Save("Build X", "first")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Save("Build X ", "second")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("expected the same path, got %q and %q", first, second)
	}
	data, _ := os.ReadFile(second)
	if string(data) != "second" {
		t.Errorf("last write should win, got %q", data)
	}
}
