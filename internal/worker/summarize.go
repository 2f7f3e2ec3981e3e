package worker

import (
	"context"
	"errors"
	"time"

	"refnet/internal/core"
	"refnet/internal/pdf"
	"refnet/internal/persistence"
	"refnet/internal/queue"
	"refnet/internal/summarize"
	"refnet/internal/xerrors"
)

// SummarizeHandler implements the summarize stage (C7): fetch the PDF,
// extract text, produce an abstractive summary and keyword list, and
// route to the generate stage regardless of outcome.
type SummarizeHandler struct {
	DB       persistence.Database
	Fetcher  *pdf.Fetcher
	Extractor *pdf.Extractor
	LLM      summarize.Client
	Queue    *queue.Queue
}

const summaryKeywordCount = 10

func (h *SummarizeHandler) Handle(ctx context.Context, item *core.QueueItem) error {
	paperID := item.PaperID

	if err := h.DB.Papers().SetStatus(ctx, paperID, core.StageSummarize, string(core.SummaryRunning), ""); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "summarize: set running: %v", err)
	}

	paper, err := h.DB.Papers().Get(ctx, paperID)
	if err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "summarize: load paper: %v", err)
	}
	if paper == nil {
		return xerrors.Wrap(xerrors.ErrNotFound, "summarize: paper %s not found", paperID)
	}

	result, err := h.Fetcher.Fetch(ctx, paper.PDFURL)
	if err != nil {
		if errors.Is(err, xerrors.ErrUnavailable) {
			_ = h.DB.Papers().SetStatus(ctx, paperID, core.StageGenerate, string(core.PDFUnavailable), "")
			_ = h.DB.Papers().SetStatus(ctx, paperID, core.StageSummarize, string(core.SummaryFailed), "no_pdf")
			if _, qerr := h.Queue.Enqueue(ctx, paperID, core.StageGenerate, 30, nil); qerr != nil {
				return xerrors.Wrap(xerrors.ErrStorage, "summarize: enqueue generate after no_pdf: %v", qerr)
			}
			return nil
		}
		_ = h.DB.Papers().SetStatus(ctx, paperID, core.StageSummarize, string(core.SummaryFailed), err.Error())
		return err
	}

	paper.PDFHash = result.Hash
	paper.PDFSize = result.Size
	if err := h.DB.Papers().UpsertPaper(ctx, paper); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "summarize: stamp pdf hash: %v", err)
	}
	if err := h.DB.Papers().SetStatus(ctx, paperID, core.StageGenerate, string(core.PDFCompleted), ""); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "summarize: set pdf completed: %v", err)
	}

	text := h.Extractor.Extract(result.Bytes)
	if len(text) < pdf.MinExtractedChars {
		_ = h.DB.Papers().SetStatus(ctx, paperID, core.StageSummarize, string(core.SummaryFailed), "extraction_failed")
		return xerrors.Wrap(xerrors.ErrExtraction, "summarize: extracted text too short (%d chars)", len(text))
	}

	maxTokens := 512
	summary, err := h.LLM.Summarize(ctx, text, maxTokens)
	if err != nil {
		_ = h.DB.Papers().SetStatus(ctx, paperID, core.StageSummarize, string(core.SummaryFailed), err.Error())
		return err
	}
	keywords, err := h.LLM.Keywords(ctx, text, summaryKeywordCount)
	if err != nil {
		_ = h.DB.Papers().SetStatus(ctx, paperID, core.StageSummarize, string(core.SummaryFailed), err.Error())
		return err
	}

	now := time.Now().UTC()
	paper.Summary = summary
	paper.SummaryModel = h.LLM.ModelName()
	paper.SummaryCreatedAt = &now
	if err := h.DB.Papers().UpsertPaper(ctx, paper); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "summarize: store summary: %v", err)
	}

	rows := make([]core.Keyword, 0, len(keywords))
	for i, kw := range keywords {
		relevance := 1.0 - float64(i)/float64(len(keywords)+1)
		rows = append(rows, core.Keyword{PaperID: paperID, Keyword: kw, Relevance: relevance, Method: "llm"})
	}
	if err := h.DB.Keywords().ReplaceKeywords(ctx, paperID, rows); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "summarize: store keywords: %v", err)
	}

	if err := h.DB.Papers().SetStatus(ctx, paperID, core.StageSummarize, string(core.SummaryCompleted), ""); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "summarize: set completed: %v", err)
	}

	if _, err := h.Queue.Enqueue(ctx, paperID, core.StageGenerate, 30, nil); err != nil {
		return xerrors.Wrap(xerrors.ErrStorage, "summarize: enqueue generate: %v", err)
	}
	return nil
}
