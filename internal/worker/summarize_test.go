package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"refnet/internal/core"
	"refnet/internal/pdf"
	"refnet/internal/queue"
	"refnet/internal/xerrors"
)

type fakeLLM struct {
	summary  string
	keywords []string
	model    string
	failErr  error
}

func (f *fakeLLM) Summarize(ctx context.Context, text string, maxTokens int) (string, error) {
	if f.failErr != nil {
		return "", f.failErr
	}
	return f.summary, nil
}
func (f *fakeLLM) Keywords(ctx context.Context, text string, k int) ([]string, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	return f.keywords, nil
}
func (f *fakeLLM) ModelName() string { return f.model }

func pdfServerWithText(t *testing.T, repeats int) *httptest.Server {
	t.Helper()
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	for i := 0; i < repeats; i++ {
		b.WriteString("(This is extracted paper text content.) Tj\n")
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte(b.String()))
	}))
}

func TestSummarizeHandlerHappyPath(t *testing.T) {
	db := newFakeDB()
	_ = db.Papers().UpsertPaper(context.Background(), &core.Paper{ID: "P1", Title: "Seed"})

	server := pdfServerWithText(t, 10)
	defer server.Close()
	db.papers["P1"].PDFURL = server.URL

	llm := &fakeLLM{summary: "a concise summary", keywords: []string{"graphs", "attention"}, model: "test-model"}
	h := &SummarizeHandler{
		DB: db, Fetcher: pdf.NewFetcher(0), Extractor: pdf.NewExtractor(), LLM: llm,
		Queue: queue.New(&fakeQueueRepo{}, queue.Config{}),
	}

	item := &core.QueueItem{PaperID: "P1", TaskType: core.StageSummarize}
	if err := h.Handle(context.Background(), item); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, _ := db.Papers().Get(context.Background(), "P1")
	if p.SummaryStatus != core.SummaryCompleted {
		t.Errorf("expected summary completed, got %s", p.SummaryStatus)
	}
	if p.PDFStatus != core.PDFCompleted {
		t.Errorf("expected pdf completed, got %s", p.PDFStatus)
	}
	if p.Summary != "a concise summary" {
		t.Errorf("expected stored summary, got %q", p.Summary)
	}
	if p.SummaryModel != "test-model" {
		t.Errorf("expected stored model name, got %q", p.SummaryModel)
	}
	kws, _ := db.Keywords().GetByPaper(context.Background(), "P1")
	if len(kws) != 2 {
		t.Errorf("expected 2 stored keywords, got %d", len(kws))
	}
}

func TestSummarizeHandlerUnavailablePDF(t *testing.T) {
	db := newFakeDB()
	_ = db.Papers().UpsertPaper(context.Background(), &core.Paper{ID: "P1", Title: "Seed", PDFURL: "http://127.0.0.1:0/nope"})

	h := &SummarizeHandler{
		DB: db, Fetcher: pdf.NewFetcher(0), Extractor: pdf.NewExtractor(), LLM: &fakeLLM{},
		Queue: queue.New(&fakeQueueRepo{}, queue.Config{}),
	}

	item := &core.QueueItem{PaperID: "P1", TaskType: core.StageSummarize}
	if err := h.Handle(context.Background(), item); err != nil {
		t.Fatalf("expected no error on no_pdf terminal path, got %v", err)
	}

	p, _ := db.Papers().Get(context.Background(), "P1")
	if p.PDFStatus != core.PDFUnavailable {
		t.Errorf("expected pdf_status=unavailable, got %s", p.PDFStatus)
	}
	if p.SummaryStatus != core.SummaryFailed {
		t.Errorf("expected summary_status=failed, got %s", p.SummaryStatus)
	}
}

func TestSummarizeHandlerExtractionTooShortFails(t *testing.T) {
	db := newFakeDB()
	_ = db.Papers().UpsertPaper(context.Background(), &core.Paper{ID: "P1", Title: "Seed"})

	server := pdfServerWithText(t, 0)
	defer server.Close()
	db.papers["P1"].PDFURL = server.URL

	h := &SummarizeHandler{
		DB: db, Fetcher: pdf.NewFetcher(0), Extractor: pdf.NewExtractor(), LLM: &fakeLLM{},
		Queue: queue.New(&fakeQueueRepo{}, queue.Config{}),
	}

	item := &core.QueueItem{PaperID: "P1", TaskType: core.StageSummarize}
	err := h.Handle(context.Background(), item)
	if xerrors.Classify(err) != xerrors.ErrExtraction {
		t.Errorf("expected ErrExtraction, got %v", err)
	}

	p, _ := db.Papers().Get(context.Background(), "P1")
	if p.SummaryStatus != core.SummaryFailed {
		t.Errorf("expected summary_status=failed, got %s", p.SummaryStatus)
	}
}
