// Package render turns the persisted citation graph into the vault
// filesystem (C8's output side): one Markdown file per paper, a README
// index, and a viewer configuration, all written atomically.
package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"refnet/internal/core"
)

// PaperView bundles everything Generate reads for one paper before
// assembling its Markdown document.
type PaperView struct {
	Paper       core.Paper
	Authors     []core.Author
	Keywords    []core.Keyword
	ExternalIDs []core.ExternalID
	VenueName   string
	JournalName string
	Citations   []core.PaperRelation // in-edges: papers that cite this one
	References  []core.PaperRelation // out-edges: papers this one cites
}

var filenameDisallowed = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename replaces filesystem-hostile characters with an
// underscore and truncates to 100 characters.
func SanitizeFilename(id string) string {
	sanitized := filenameDisallowed.ReplaceAllString(id, "_")
	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}
	return sanitized
}

// PaperPath returns the vault-relative path a paper's Markdown is
// written to.
func PaperPath(vaultDir, paperID string) string {
	return filepath.Join(vaultDir, "papers", SanitizeFilename(paperID)+".md")
}

// WritePaper renders v and writes it to the vault atomically (tempfile
// then rename), so concurrent readers never observe a partial file.
func WritePaper(vaultDir string, v PaperView) error {
	path := PaperPath(vaultDir, v.Paper.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create papers dir: %w", err)
	}
	content := RenderPaperMarkdown(v)
	return writeAtomic(path, content)
}

// RenderPaperMarkdown assembles the front-matter-plus-sections document
// for one paper.
func RenderPaperMarkdown(v PaperView) string {
	var b strings.Builder
	p := v.Paper

	b.WriteString("---\n")
	fmt.Fprintf(&b, "paper_id: %q\n", p.ID)
	fmt.Fprintf(&b, "title: %q\n", p.Title)
	if p.Year != nil {
		fmt.Fprintf(&b, "year: %d\n", *p.Year)
	}
	fmt.Fprintf(&b, "citation_count: %d\n", p.CitationCount)
	fmt.Fprintf(&b, "reference_count: %d\n", p.ReferenceCount)
	if len(v.Authors) > 0 {
		b.WriteString("authors:\n")
		for _, a := range v.Authors {
			fmt.Fprintf(&b, "  - %q\n", a.Name)
		}
	}
	tags := deriveTags(p, v.VenueName)
	if len(tags) > 0 {
		b.WriteString("tags:\n")
		for _, t := range tags {
			fmt.Fprintf(&b, "  - %q\n", t)
		}
	}
	if len(v.Keywords) > 0 {
		b.WriteString("keywords:\n")
		for _, k := range sortedKeywords(v.Keywords) {
			fmt.Fprintf(&b, "  - %q\n", k.Keyword)
		}
	}
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# %s\n\n", p.Title)

	b.WriteString("## Basic Info\n\n")
	if p.Year != nil {
		fmt.Fprintf(&b, "- **Year:** %d\n", *p.Year)
	}
	if v.VenueName != "" {
		fmt.Fprintf(&b, "- **Venue:** %s\n", v.VenueName)
	}
	if v.JournalName != "" {
		fmt.Fprintf(&b, "- **Journal:** %s\n", v.JournalName)
	}
	if len(v.Authors) > 0 {
		names := make([]string, len(v.Authors))
		for i, a := range v.Authors {
			names[i] = a.Name
		}
		fmt.Fprintf(&b, "- **Authors:** %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "- **Citations:** %d\n", p.CitationCount)
	fmt.Fprintf(&b, "- **References:** %d\n", p.ReferenceCount)
	b.WriteString("\n")

	b.WriteString("## Summary\n\n")
	switch {
	case p.SummaryStatus == core.SummaryCompleted && p.Summary != "":
		b.WriteString(p.Summary + "\n\n")
	case p.PDFStatus == core.PDFUnavailable:
		b.WriteString("_PDF not available; no summary was generated._\n\n")
	default:
		b.WriteString("_Summary not yet available._\n\n")
	}

	if p.Abstract != "" {
		b.WriteString("## Abstract\n\n")
		b.WriteString(p.Abstract + "\n\n")
	}

	b.WriteString("## Relations\n\n")
	renderRelationGroup(&b, "Cited by (citations)", v.Citations)
	renderRelationGroup(&b, "References", v.References)

	if len(v.Keywords) > 0 {
		b.WriteString("## Keywords\n\n")
		for _, k := range sortedKeywords(v.Keywords) {
			fmt.Fprintf(&b, "- %s (%.2f)\n", k.Keyword, k.Relevance)
		}
		b.WriteString("\n")
	}

	if len(v.ExternalIDs) > 0 {
		b.WriteString("## External Links\n\n")
		for _, id := range v.ExternalIDs {
			fmt.Fprintf(&b, "- %s: %s\n", id.IDType, externalIDLink(id))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Metadata\n\n")
	fmt.Fprintf(&b, "- Crawl status: %s\n", p.CrawlStatus)
	fmt.Fprintf(&b, "- PDF status: %s\n", p.PDFStatus)
	fmt.Fprintf(&b, "- Summary status: %s\n", p.SummaryStatus)
	if p.SummaryModel != "" {
		fmt.Fprintf(&b, "- Summary model: %s\n", p.SummaryModel)
	}
	fmt.Fprintf(&b, "- Generated: %s\n", time.Now().UTC().Format(time.RFC3339))

	return b.String()
}

func renderRelationGroup(b *strings.Builder, heading string, edges []core.PaperRelation) {
	if len(edges) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", heading)
	byHop := make(map[int][]core.PaperRelation)
	hops := make([]int, 0)
	for _, e := range edges {
		if _, ok := byHop[e.HopCount]; !ok {
			hops = append(hops, e.HopCount)
		}
		byHop[e.HopCount] = append(byHop[e.HopCount], e)
	}
	sort.Ints(hops)
	for _, hop := range hops {
		fmt.Fprintf(b, "**Hop %d**\n\n", hop)
		for _, e := range byHop[hop] {
			id := e.Target
			if heading == "Cited by (citations)" {
				id = e.Source
			}
			fmt.Fprintf(b, "- [[%s]]\n", id)
		}
		b.WriteString("\n")
	}
}

func externalIDLink(id core.ExternalID) string {
	switch id.IDType {
	case core.ExternalIDDOI:
		return "https://doi.org/" + id.ExternalID
	case core.ExternalIDArXiv:
		return "https://arxiv.org/abs/" + id.ExternalID
	default:
		return id.ExternalID
	}
}

func sortedKeywords(keywords []core.Keyword) []core.Keyword {
	out := make([]core.Keyword, len(keywords))
	copy(out, keywords)
	sort.Slice(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	return out
}

func deriveTags(p core.Paper, venueName string) []string {
	tags := make([]string, 0, 2)
	if p.Year != nil {
		tags = append(tags, strconv.Itoa(*p.Year))
	}
	if venueName != "" {
		tags = append(tags, venueName)
	}
	return tags
}

func writeAtomic(path string, content string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create tempfile: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write tempfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close tempfile: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// IndexData summarizes the graph for the vault README.
type IndexData struct {
	Stats         core.GraphStats
	YearHistogram map[int]int
	TopCited      []core.Paper
	MostRecent    []core.Paper
}

// WriteIndex (re)generates <vault>/README.md.
func WriteIndex(vaultDir string, data IndexData) error {
	var b strings.Builder

	b.WriteString("# Citation Graph Vault\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- Papers: %d\n", data.Stats.PaperCount)
	fmt.Fprintf(&b, "- Authors: %d\n", data.Stats.AuthorCount)
	fmt.Fprintf(&b, "- Relations: %d\n", data.Stats.RelationCount)
	fmt.Fprintf(&b, "- Crawled: %d\n", data.Stats.CrawledCount)
	fmt.Fprintf(&b, "- Summarized: %d\n", data.Stats.SummarizedCount)
	fmt.Fprintf(&b, "- Max hop reached: %d\n\n", data.Stats.MaxHopReached)

	totalCitations := 0
	for _, p := range data.TopCited {
		totalCitations += p.CitationCount
	}
	fmt.Fprintf(&b, "Total citations across top-cited papers: %d\n\n", totalCitations)

	if len(data.YearHistogram) > 0 {
		b.WriteString("## Papers by Year\n\n")
		years := make([]int, 0, len(data.YearHistogram))
		for y := range data.YearHistogram {
			years = append(years, y)
		}
		sort.Ints(years)
		for _, y := range years {
			fmt.Fprintf(&b, "- %d: %d\n", y, data.YearHistogram[y])
		}
		b.WriteString("\n")
	}

	if len(data.TopCited) > 0 {
		b.WriteString("## Top Cited\n\n")
		for i, p := range data.TopCited {
			fmt.Fprintf(&b, "%d. [[%s]] — %s (%d citations)\n", i+1, p.ID, p.Title, p.CitationCount)
		}
		b.WriteString("\n")
	}

	if len(data.MostRecent) > 0 {
		b.WriteString("## Recently Crawled\n\n")
		for _, p := range data.MostRecent {
			fmt.Fprintf(&b, "- [[%s]] — %s\n", p.ID, p.Title)
		}
		b.WriteString("\n")
	}

	return writeAtomic(filepath.Join(vaultDir, "README.md"), b.String())
}

// ViewerConfig is the graph display tuning written once per vault.
type ViewerConfig struct {
	NodeSizeByCitations bool   `json:"node_size_by_citations"`
	MaxHopColor         bool   `json:"color_by_hop"`
	DefaultLayout       string `json:"default_layout"`
}

// WriteViewerConfig writes <vault>/.refnet-viewer/graph.json if it does
// not already exist; the viewer config is written once, not on every
// generate.
func WriteViewerConfig(vaultDir string) error {
	dir := filepath.Join(vaultDir, ".refnet-viewer")
	path := filepath.Join(dir, "graph.json")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create viewer config dir: %w", err)
	}
	cfg := ViewerConfig{NodeSizeByCitations: true, MaxHopColor: true, DefaultLayout: "force-directed"}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal viewer config: %w", err)
	}
	return writeAtomic(path, string(data)+"\n")
}
