package report

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/marketbrief/marketbrief/pkg/models"
)

// SectionWriter produces the text for one section. The manager in
// internal/llm satisfies it; failures surface as inline placeholder text,
// never as errors.
type SectionWriter interface {
	GenerateSection(ctx context.Context, prompt, data string) string
	Available() []string
}

// DataSource supplies the aggregated market snapshot and the news list
// for the report period.
type DataSource interface {
	Snapshot(ctx context.Context, start, end time.Time) *models.MarketSnapshot
	FinancialNews(ctx context.Context, start, end time.Time) []models.NewsArticle
}

// Generator drives one full report run: aggregate, then generate each
// section in order, then compose.
type Generator struct {
	data   DataSource
	writer SectionWriter
	logger *zap.Logger
}

// NewGenerator creates a report generator.
func NewGenerator(data DataSource, writer SectionWriter, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{data: data, writer: writer, logger: logger}
}

// Generate produces the complete Markdown report for the period. Sections
// are generated strictly in order, one agent call each.
func (g *Generator) Generate(ctx context.Context, start, end time.Time) string {
	snap := g.data.Snapshot(ctx, start, end)
	news := g.data.FinancialNews(ctx, start, end)

	sections := make(map[Section]string, len(AllSections()))
	for _, s := range AllSections() {
		g.logger.Info("generating section", zap.String("section", string(s)))
		sections[s] = g.writer.GenerateSection(ctx, s.Prompt(), BuildContext(s, snap, news))
	}

	return Compose(sections, start, end, g.writer.Available())
}
