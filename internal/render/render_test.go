package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"refnet/internal/core"
)

func TestSanitizeFilenameReplacesDisallowedChars(t *testing.T) {
	got := SanitizeFilename(`a/b\c:d*e?f"g<h>i|j`)
	if strings.ContainsAny(got, `/\:*?"<>|`) {
		t.Errorf("expected all disallowed characters replaced, got %q", got)
	}
}

func TestSanitizeFilenameTruncatesTo100(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("x", 200))
	if len(got) != 100 {
		t.Errorf("expected truncation to 100 chars, got %d", len(got))
	}
}

func TestRenderPaperMarkdownIncludesTitleAndSummary(t *testing.T) {
	year := 2020
	v := PaperView{
		Paper: core.Paper{
			ID:            "P1",
			Title:         "Attention Is All You Need",
			Year:          &year,
			Summary:       "A transformer architecture.",
			SummaryStatus: core.SummaryCompleted,
			CrawlStatus:   core.CrawlCompleted,
			PDFStatus:     core.PDFCompleted,
		},
	}

	got := RenderPaperMarkdown(v)
	if !strings.Contains(got, "# Attention Is All You Need") {
		t.Errorf("expected title heading, got %q", got)
	}
	if !strings.Contains(got, "A transformer architecture.") {
		t.Errorf("expected summary body, got %q", got)
	}
	if !strings.Contains(got, `paper_id: "P1"`) {
		t.Errorf("expected front-matter paper_id, got %q", got)
	}
}

func TestRenderPaperMarkdownNoPDFNote(t *testing.T) {
	v := PaperView{
		Paper: core.Paper{
			ID:        "P2",
			Title:     "A Paper With No PDF",
			PDFStatus: core.PDFUnavailable,
		},
	}

	got := RenderPaperMarkdown(v)
	if !strings.Contains(got, "PDF not available") {
		t.Errorf("expected a PDF-unavailable note, got %q", got)
	}
}

func TestRenderPaperMarkdownGroupsRelationsByHop(t *testing.T) {
	v := PaperView{
		Paper: core.Paper{ID: "P1", Title: "Seed"},
		References: []core.PaperRelation{
			{Source: "P1", Target: "P2", HopCount: 1},
			{Source: "P1", Target: "P3", HopCount: 2},
		},
	}

	got := RenderPaperMarkdown(v)
	if !strings.Contains(got, "**Hop 1**") || !strings.Contains(got, "**Hop 2**") {
		t.Errorf("expected both hop groups rendered, got %q", got)
	}
}

func TestRenderPaperMarkdownIsIdempotentModuloTimestamp(t *testing.T) {
	v := PaperView{Paper: core.Paper{ID: "P1", Title: "Seed"}}

	first := maskTimestamp(RenderPaperMarkdown(v))
	second := maskTimestamp(RenderPaperMarkdown(v))
	if first != second {
		t.Errorf("expected byte-equal output modulo timestamp:\n%q\nvs\n%q", first, second)
	}
}

func maskTimestamp(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "- Generated:") {
			lines[i] = "- Generated: MASKED"
		}
	}
	return strings.Join(lines, "\n")
}

func TestWritePaperWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	v := PaperView{Paper: core.Paper{ID: "P1", Title: "Seed"}}

	if err := WritePaper(dir, v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := PaperPath(dir, "P1")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file at %s: %v", path, err)
	}
	if !strings.Contains(string(data), "Seed") {
		t.Errorf("expected written file to contain title, got %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("expected no leftover tempfile, found %s", e.Name())
		}
	}
}

func TestWriteIndexIncludesOverviewCounts(t *testing.T) {
	dir := t.TempDir()
	data := IndexData{
		Stats: core.GraphStats{PaperCount: 3, AuthorCount: 5, RelationCount: 7},
		TopCited: []core.Paper{
			{ID: "P1", Title: "Top Paper", CitationCount: 100},
		},
	}

	if err := WriteIndex(dir, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "README.md"))
	if err != nil {
		t.Fatalf("expected README.md: %v", err)
	}
	if !strings.Contains(string(got), "Papers: 3") {
		t.Errorf("expected paper count in index, got %q", got)
	}
	if !strings.Contains(string(got), "Top Paper") {
		t.Errorf("expected top cited paper listed, got %q", got)
	}
}

func TestWriteViewerConfigWritesOnceOnly(t *testing.T) {
	dir := t.TempDir()

	if err := WriteViewerConfig(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(dir, ".refnet-viewer", "graph.json")
	first, _ := os.ReadFile(path)

	// Mutate the file, then confirm a second call leaves it untouched.
	if err := os.WriteFile(path, []byte("custom"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := WriteViewerConfig(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := os.ReadFile(path)
	if string(second) != "custom" {
		t.Errorf("expected second call to be a no-op, file changed from %q", first)
	}
}
