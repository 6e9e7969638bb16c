package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const methodologyBlock = `## METHODOLOGY & DATA SOURCES
This report was generated using AI analysis of:
- Real-time market data from Yahoo Finance
- Financial news from multiple RSS feeds and news APIs
- Economic indicators and market sentiment data
- Sector performance and individual stock analysis

**Disclaimer:** This report is for informational purposes only and should not be considered as investment advice. Always consult with qualified financial advisors before making investment decisions.`

const footerLine = "*Report generated by AI-Powered Market Report Generator*"

// Compose renders the final Markdown report. Section texts must be keyed
// by Section; missing entries render as empty bodies so the heading
// structure stays intact.
func Compose(sections map[Section]string, start, end time.Time, agents []string) string {
	var b strings.Builder

	b.WriteString("# COMPREHENSIVE STOCK MARKET REPORT\n")
	fmt.Fprintf(&b, "**Report Period:** %s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Generated:** %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**AI Agent:** %s\n", strings.Join(agents, ", "))

	for _, s := range AllSections() {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "## %s\n", s.Title())
		b.WriteString(sections[s])
		b.WriteString("\n")
	}

	b.WriteString("\n---\n\n")
	b.WriteString(methodologyBlock)
	b.WriteString("\n\n---\n")
	b.WriteString(footerLine)
	b.WriteString("\n")
	return b.String()
}

// DefaultFilename returns the timestamped report filename.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("market_report_%s.md", now.Format("20060102_150405"))
}

// Save writes the report to path. An empty path uses the default
// timestamped filename in the current directory; a directory path gets
// the default filename appended. Returns the resolved path.
func Save(report, path string) (string, error) {
	switch {
	case path == "":
		path = DefaultFilename(time.Now())
	default:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, DefaultFilename(time.Now()))
		}
	}

	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("saving report to %s: %w", path, err)
	}
	return path, nil
}
