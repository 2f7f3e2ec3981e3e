package core

import (
	"testing"
	"time"
)

func TestPaperCreation(t *testing.T) {
	now := time.Now()
	year := 2021
	influence := 12.5
	paper := Paper{
		ID:             "paper-1",
		Title:          "Attention Is All You Need",
		Abstract:       "We propose a new network architecture...",
		Year:           &year,
		CitationCount:  9000,
		ReferenceCount: 40,
		InfluenceScore: &influence,
		OpenAccess:     true,
		Language:       "en",
		PDFURL:         "https://example.com/paper.pdf",
		CrawlStatus:    CrawlCompleted,
		PDFStatus:      PDFCompleted,
		SummaryStatus:  SummaryPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if paper.ID != "paper-1" {
		t.Errorf("expected ID to be 'paper-1', got %s", paper.ID)
	}
	if paper.CitationCount != 9000 {
		t.Errorf("expected CitationCount to be 9000, got %d", paper.CitationCount)
	}
	if !paper.OpenAccess {
		t.Errorf("expected OpenAccess to be true, got %v", paper.OpenAccess)
	}
	if paper.CrawlStatus != CrawlCompleted {
		t.Errorf("expected CrawlStatus to be completed, got %s", paper.CrawlStatus)
	}
}

func TestValidateYear(t *testing.T) {
	inRange := 2020
	tooEarly := 1899
	tooLate := 2101

	if !ValidateYear(nil) {
		t.Errorf("expected nil year to be valid")
	}
	if !ValidateYear(&inRange) {
		t.Errorf("expected %d to be valid", inRange)
	}
	if ValidateYear(&tooEarly) {
		t.Errorf("expected %d to be invalid", tooEarly)
	}
	if ValidateYear(&tooLate) {
		t.Errorf("expected %d to be invalid", tooLate)
	}
}

func TestAuthorCreation(t *testing.T) {
	author := Author{
		ID:            "author-1",
		Name:          "Ashish Vaswani",
		PaperCount:    12,
		CitationCount: 50000,
		HIndex:        20,
	}

	if author.Name != "Ashish Vaswani" {
		t.Errorf("expected Name to be 'Ashish Vaswani', got %s", author.Name)
	}
	if author.HIndex != 20 {
		t.Errorf("expected HIndex to be 20, got %d", author.HIndex)
	}
}

func TestPaperRelationCreation(t *testing.T) {
	now := time.Now()
	confidence := 0.95
	relation := PaperRelation{
		ID:         1,
		Source:     "paper-1",
		Target:     "paper-2",
		Type:       RelationCitation,
		HopCount:   1,
		Confidence: &confidence,
		CreatedAt:  now,
	}

	if relation.Source == relation.Target {
		t.Errorf("expected Source and Target to differ")
	}
	if relation.Type != RelationCitation {
		t.Errorf("expected Type to be citation, got %s", relation.Type)
	}
	if relation.HopCount != 1 {
		t.Errorf("expected HopCount to be 1, got %d", relation.HopCount)
	}
}

func TestExternalIDCreation(t *testing.T) {
	id := ExternalID{
		PaperID:    "paper-1",
		IDType:     ExternalIDDOI,
		ExternalID: "10.1000/xyz123",
	}

	if id.IDType != ExternalIDDOI {
		t.Errorf("expected IDType to be DOI, got %s", id.IDType)
	}
	if id.ExternalID != "10.1000/xyz123" {
		t.Errorf("expected ExternalID to be '10.1000/xyz123', got %s", id.ExternalID)
	}
}

func TestKeywordCreation(t *testing.T) {
	keyword := Keyword{
		PaperID:   "paper-1",
		Keyword:   "transformer",
		Relevance: 0.87,
		Method:    "llm",
	}

	if keyword.Keyword != "transformer" {
		t.Errorf("expected Keyword to be 'transformer', got %s", keyword.Keyword)
	}
	if keyword.Relevance != 0.87 {
		t.Errorf("expected Relevance to be 0.87, got %f", keyword.Relevance)
	}
}

func TestQueueItemCreation(t *testing.T) {
	now := time.Now()
	item := QueueItem{
		ID:         1,
		PaperID:    "paper-1",
		TaskType:   StageCrawl,
		Status:     QueuePending,
		Priority:   80,
		RetryCount: 0,
		MaxRetries: 3,
		CreatedAt:  now,
	}

	if item.TaskType != StageCrawl {
		t.Errorf("expected TaskType to be crawl, got %s", item.TaskType)
	}
	if item.Status.IsTerminal() {
		t.Errorf("expected pending status to not be terminal")
	}

	item.Status = QueueCompleted
	if !item.Status.IsTerminal() {
		t.Errorf("expected completed status to be terminal")
	}
}

func TestGraphStatsCreation(t *testing.T) {
	now := time.Now()
	stats := GraphStats{
		PaperCount:      100,
		AuthorCount:     250,
		RelationCount:   400,
		CrawledCount:    90,
		SummarizedCount: 60,
		MaxHopReached:   3,
		ComputedAt:      now,
	}

	if stats.PaperCount != 100 {
		t.Errorf("expected PaperCount to be 100, got %d", stats.PaperCount)
	}
	if stats.MaxHopReached != 3 {
		t.Errorf("expected MaxHopReached to be 3, got %d", stats.MaxHopReached)
	}
}
