package pdf

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MinExtractedChars is the threshold below which the primary extractor's
// output is considered too thin and the fallback extractor is tried.
const MinExtractedChars = 100

// Extractor pulls plain text out of PDF bytes.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns canonicalized plain text from data. It tries the
// layout-aware extractor first, falling back to a simpler byte-scanning
// extractor when the primary yields too little text. Returns an empty
// string (never an error) on total failure, per spec.
func (e *Extractor) Extract(data []byte) string {
	text := e.extractLayoutAware(data)
	if len(strings.TrimSpace(text)) < MinExtractedChars {
		if fallback := e.extractFallback(data); len(strings.TrimSpace(fallback)) > len(strings.TrimSpace(text)) {
			text = fallback
		}
	}
	return canonicalize(text)
}

func (e *Extractor) extractLayoutAware(data []byte) string {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(pageText)
		builder.WriteString("\n\n")
	}
	return builder.String()
}

var literalStringRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)

// extractFallback is a minimal PDF "stream text" scraper: it scans raw
// object streams for literal strings immediately preceding a Tj text-show
// operator, ignoring all layout structure. Extract tries it whenever the
// layout-aware extractor yields fewer than MinExtractedChars characters,
// including when that extractor fails outright (encrypted/malformed
// streams, unsupported encodings).
func (e *Extractor) extractFallback(data []byte) string {
	matches := literalStringRe.FindAllSubmatch(data, -1)
	if len(matches) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, m := range matches {
		builder.WriteString(unescapePDFLiteral(string(m[1])))
		builder.WriteString(" ")
	}
	return builder.String()
}

func unescapePDFLiteral(s string) string {
	replacer := strings.NewReplacer(`\(`, "(", `\)`, ")", `\\`, `\`, `\n`, "\n", `\r`, "\r", `\t`, "\t")
	return replacer.Replace(s)
}

var (
	blankLinesRe = regexp.MustCompile(`\n{2,}`)
	spacesRe     = regexp.MustCompile(` {2,}`)
)

// canonicalize normalizes extracted text: CRLF->LF, collapses runs of
// blank lines to one, collapses runs of spaces to one.
func canonicalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
