package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"refnet/internal/xerrors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := New(Config{
		BaseURL: server.URL,
		Retry:   xerrors.RetryPolicy{MaxAttempts: 2, BackoffBase: time.Millisecond, BackoffMax: time.Millisecond},
	})
	return client, server
}

func TestGetPaperSuccess(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"paperId":"p1","title":"Attention Is All You Need","year":2017,"citationCount":9000,"openAccessPdf":{"url":"https://example.com/p1.pdf"}}`))
	})
	defer server.Close()

	paper, err := client.GetPaper(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if paper.ID != "p1" {
		t.Errorf("expected ID 'p1', got %s", paper.ID)
	}
	if paper.PDFURL != "https://example.com/p1.pdf" {
		t.Errorf("expected PDF URL to be set, got %s", paper.PDFURL)
	}
}

func TestGetPaperNotFound(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	_, err := client.GetPaper(context.Background(), "missing")
	if err != xerrors.ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPaperRetriesOnServerError(t *testing.T) {
	var calls int
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"paperId":"p1","title":"Retried"}`))
	})
	defer server.Close()

	paper, err := client.GetPaper(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if paper.Title != "Retried" {
		t.Errorf("expected title 'Retried', got %s", paper.Title)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestGetCitationsNotFoundReturnsEmpty(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	citations, err := client.GetCitations(context.Background(), "p1", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if citations != nil {
		t.Errorf("expected nil citations for not-found, got %v", citations)
	}
}

func TestGetPaperPermanentErrorDoesNotRetry(t *testing.T) {
	var calls int
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	})
	defer server.Close()

	_, err := client.GetPaper(context.Background(), "p1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call for permanent error, got %d", calls)
	}
}
