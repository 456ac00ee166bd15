package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/quizrunner/internal/model"
	"github.com/ppiankov/quizrunner/internal/table"
	"go.uber.org/zap"
)

var (
	// ErrNoArtifact means no linked artifact could be fetched and parsed
	ErrNoArtifact = errors.New("no parseable artifact")

	// ErrNoColumn means the first parsed table lacks the wanted column
	ErrNoColumn = errors.New("column not found")
)

// SumColumn answers by summing one column of the first parseable artifact.
// Cells that are not numbers count as zero.
type SumColumn struct {
	fetcher Fetcher
	parser  *table.Parser
	column  string
	logger  *zap.Logger
}

// NewSumColumn creates a strategy summing column, matched case-insensitively
func NewSumColumn(fetcher Fetcher, parser *table.Parser, column string, logger *zap.Logger) *SumColumn {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SumColumn{fetcher: fetcher, parser: parser, column: column, logger: logger}
}

// Solve implements Strategy
func (s *SumColumn) Solve(ctx context.Context, interp model.PageInterpretation, _ model.RenderedPage) (model.Answer, error) {
	t, link, err := FirstTable(ctx, s.fetcher, s.parser, interp.Artifacts, s.logger)
	if err != nil {
		return model.NoAnswer, err
	}

	sum, ok := t.SumColumn(s.column)
	if !ok {
		return model.NoAnswer, fmt.Errorf("%w: %q in %s", ErrNoColumn, s.column, link.URL)
	}

	s.logger.Debug("summed column",
		zap.String("column", s.column),
		zap.String("artifact", link.URL),
		zap.Int("rows", len(t.Rows)),
		zap.Float64("sum", sum))
	return model.NumberAnswer(sum), nil
}

// FirstTable walks links in page order and returns the first one that can be
// fetched and parsed. Later links are never consulted once one succeeds.
func FirstTable(ctx context.Context, fetcher Fetcher, parser *table.Parser, links []model.ArtifactLink, logger *zap.Logger) (*table.Table, model.ArtifactLink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return nil, model.ArtifactLink{}, err
		}

		if !parser.Supports(link.Format) {
			logger.Debug("skipping unsupported artifact",
				zap.String("url", link.URL),
				zap.String("format", string(link.Format)))
			continue
		}

		data, err := fetcher.FetchBytes(ctx, link.URL)
		if err != nil {
			logger.Debug("artifact fetch failed", zap.String("url", link.URL), zap.Error(err))
			continue
		}

		t, err := parser.Parse(data, link.Format)
		if err != nil {
			logger.Debug("artifact parse failed", zap.String("url", link.URL), zap.Error(err))
			continue
		}

		return t, link, nil
	}

	return nil, model.ArtifactLink{}, ErrNoArtifact
}
