package worker

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/codecrawler/internal/crawler"
	"github.com/JakeFAU/codecrawler/internal/sink"
)

// ReplayStats counts what a replay of persisted HTML produced.
type ReplayStats struct {
	Records    int `json:"records"`
	Skipped    int `json:"skipped"`
	Malformed  int `json:"malformed"`
	Failed     int `json:"failed"`
	CodeBlocks int `json:"code_blocks"`
}

// Replay re-extracts documents and code blocks from an HTML log. Records of
// failed fetches are skipped, malformed lines are logged and skipped.
func Replay(
	ctx context.Context,
	r io.Reader,
	extractor crawler.Extractor,
	out crawler.PageSink,
	logger *zap.Logger,
) (ReplayStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("replay")
	var stats ReplayStats

	handle := func(record sink.HTMLRecord) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("replay canceled: %w", err)
		}
		stats.Records++
		if !record.Status || record.Text == "" {
			stats.Skipped++
			return nil
		}
		extraction, err := extractor.Extract(crawler.FetchResult{
			RequestedURL: record.URL,
			FinalURL:     record.URL,
			StatusOK:     true,
			Body:         record.Text,
		})
		if err != nil {
			stats.Failed++
			logger.Warn("extraction failed", zap.String("url", record.URL), zap.Error(err))
			return nil
		}
		if err := out.SaveDocument(ctx, extraction.Document); err != nil {
			return fmt.Errorf("save document %s: %w", record.URL, err)
		}
		for _, block := range extraction.CodeBlocks {
			if err := out.SaveCodeBlock(ctx, record.URL, block); err != nil {
				return fmt.Errorf("save code block %s: %w", record.URL, err)
			}
			stats.CodeBlocks++
		}
		return nil
	}
	malformed := func(err *crawler.MalformedRecordError) {
		stats.Malformed++
		logger.Warn("skipping malformed record", zap.Int("line", err.Line), zap.Error(err.Err))
	}

	if err := sink.ReadHTMLRecords(r, handle, malformed); err != nil {
		return stats, err
	}
	logger.Info("replay complete",
		zap.Int("records", stats.Records),
		zap.Int("skipped", stats.Skipped),
		zap.Int("malformed", stats.Malformed),
		zap.Int("failed", stats.Failed),
		zap.Int("code_blocks", stats.CodeBlocks),
	)
	return stats, nil
}
