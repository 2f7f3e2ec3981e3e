// Package catalog implements the bibliographic HTTP/JSON client (C1):
// paper metadata, citations, and references, rate-limited and retried.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"refnet/internal/core"
	"refnet/internal/logger"
	"refnet/internal/xerrors"
)

// Client is a Go client for a Semantic-Scholar-shaped bibliographic catalog.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      xerrors.RetryPolicy
}

// Config configures a Client.
type Config struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	Retry             xerrors.RetryPolicy
}

// New creates a catalog Client. A zero RequestsPerSecond disables limiting.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.semanticscholar.org/graph/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = xerrors.RetryPolicy{MaxAttempts: 3, BackoffBase: time.Second, BackoffMax: 30 * time.Second, Jitter: 0.2}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		retry:      cfg.Retry,
	}
}

const paperFields = "paperId,title,abstract,year,citationCount,referenceCount,authors,venue,externalIds,fieldsOfStudy,openAccessPdf,journal,influentialCitationCount,isOpenAccess"

// paperDTO mirrors the catalog's wire shape (spec.md §6 field set). Unknown
// fields are ignored by encoding/json.
type paperDTO struct {
	PaperID        string `json:"paperId"`
	Title          string `json:"title"`
	Abstract       string `json:"abstract"`
	Year           *int   `json:"year"`
	CitationCount  int    `json:"citationCount"`
	ReferenceCount int    `json:"referenceCount"`
	IsOpenAccess   bool   `json:"isOpenAccess"`
	Authors        []struct {
		AuthorID string `json:"authorId"`
		Name     string `json:"name"`
	} `json:"authors"`
	Venue struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"venue"`
	Journal struct {
		Name string `json:"name"`
	} `json:"journal"`
	ExternalIDs   map[string]string `json:"externalIds"`
	FieldsOfStudy []string          `json:"fieldsOfStudy"`
	OpenAccessPDF *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

// CatalogPaper is the normalized record returned to callers, independent of
// the catalog's wire format.
type CatalogPaper struct {
	core.Paper
	AuthorNames   map[string]string // authorId -> name
	VenueName     string
	VenueType     string
	JournalName   string
	ExternalIDs   map[string]string
	FieldsOfStudy []string
}

func (d paperDTO) normalize() CatalogPaper {
	p := CatalogPaper{
		Paper: core.Paper{
			ID:             d.PaperID,
			Title:          d.Title,
			Abstract:       d.Abstract,
			Year:           d.Year,
			CitationCount:  d.CitationCount,
			ReferenceCount: d.ReferenceCount,
			OpenAccess:     d.IsOpenAccess,
		},
		AuthorNames:   make(map[string]string, len(d.Authors)),
		VenueName:     d.Venue.Name,
		VenueType:     d.Venue.Type,
		JournalName:   d.Journal.Name,
		ExternalIDs:   d.ExternalIDs,
		FieldsOfStudy: d.FieldsOfStudy,
	}
	if d.Venue.ID != "" {
		p.Paper.VenueID = d.Venue.ID
	}
	if d.OpenAccessPDF != nil {
		p.PDFURL = d.OpenAccessPDF.URL
	}
	for _, a := range d.Authors {
		p.AuthorNames[a.AuthorID] = a.Name
	}
	return p
}

type listDTO struct {
	Data []struct {
		CitingPaper *paperDTO `json:"citingPaper"`
		CitedPaper  *paperDTO `json:"citedPaper"`
	} `json:"data"`
}

// GetPaper fetches a single paper's metadata by its catalog id.
func (c *Client) GetPaper(ctx context.Context, id string) (CatalogPaper, error) {
	path := fmt.Sprintf("/paper/%s?fields=%s", url.PathEscape(id), paperFields)

	var dto paperDTO
	if err := c.doJSON(ctx, path, &dto); err != nil {
		return CatalogPaper{}, err
	}
	return dto.normalize(), nil
}

// GetCitations returns papers that cite id (bounded by limit/offset).
func (c *Client) GetCitations(ctx context.Context, id string, limit, offset int) ([]CatalogPaper, error) {
	path := fmt.Sprintf("/paper/%s/citations?fields=%s&limit=%d&offset=%d", url.PathEscape(id), paperFields, limit, offset)

	var dto listDTO
	if err := c.doJSON(ctx, path, &dto); err != nil {
		if err == xerrors.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	out := make([]CatalogPaper, 0, len(dto.Data))
	for _, entry := range dto.Data {
		if entry.CitingPaper != nil {
			out = append(out, entry.CitingPaper.normalize())
		}
	}
	return out, nil
}

// GetReferences returns papers that id cites (bounded by limit/offset).
func (c *Client) GetReferences(ctx context.Context, id string, limit, offset int) ([]CatalogPaper, error) {
	path := fmt.Sprintf("/paper/%s/references?fields=%s&limit=%d&offset=%d", url.PathEscape(id), paperFields, limit, offset)

	var dto listDTO
	if err := c.doJSON(ctx, path, &dto); err != nil {
		if err == xerrors.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	out := make([]CatalogPaper, 0, len(dto.Data))
	for _, entry := range dto.Data {
		if entry.CitedPaper != nil {
			out = append(out, entry.CitedPaper.normalize())
		}
	}
	return out, nil
}

// Search performs a free-text paper search.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]CatalogPaper, error) {
	path := fmt.Sprintf("/paper/search?query=%s&fields=%s&limit=%d", url.QueryEscape(query), paperFields, limit)

	var dto listDTO
	if err := c.doJSON(ctx, path, &dto); err != nil {
		return nil, err
	}

	out := make([]CatalogPaper, 0, len(dto.Data))
	for _, entry := range dto.Data {
		if entry.CitingPaper != nil {
			out = append(out, entry.CitingPaper.normalize())
		}
	}
	return out, nil
}

// doJSON performs a rate-limited, retried GET against path and decodes the
// JSON body into v.
func (c *Client) doJSON(ctx context.Context, path string, v any) error {
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := c.doOnce(ctx, path, v)
		if err == nil {
			return nil
		}
		lastErr = err

		if !c.retry.ShouldRetry(attempt, err) {
			return err
		}

		logger.Warn("catalog request retrying", "path", path, "attempt", attempt, "error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retry.Wait(attempt)):
		}
	}

	return lastErr
}

func (c *Client) doOnce(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrPermanent, "build request: %v", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrTransient, "catalog request: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return xerrors.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		if wait := retryAfter(resp.Header.Get("Retry-After")); wait > 0 {
			time.Sleep(wait)
		}
		return xerrors.Wrap(xerrors.ErrRateLimited, "catalog rate limited: %s", resp.Status)
	case resp.StatusCode >= 500:
		return xerrors.Wrap(xerrors.ErrTransient, "catalog server error: %s", resp.Status)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return xerrors.Wrap(xerrors.ErrPermanent, "catalog error %s: %s", resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return xerrors.Wrap(xerrors.ErrPermanent, "decode catalog response: %v", err)
	}
	return nil
}

func retryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
