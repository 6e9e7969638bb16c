// Package report assembles per-section prompts and contexts, drives the
// agent manager through the fixed section sequence, and composes the
// final Markdown report.
package report

// Section identifies one report section. The set and order are fixed;
// the assembler and composer share it so section texts always land under
// the right heading.
type Section string

const (
	ExecutiveSummary  Section = "executive_summary"
	GlobalOverview    Section = "global_overview"
	MacroTrends       Section = "macro_trends"
	SectorHighlights  Section = "sector_highlights"
	ConsumerInsights  Section = "consumer_insights"
	InvestmentOutlook Section = "investment_outlook"
	RisksChallenges   Section = "risks_challenges"
	Opportunities     Section = "opportunities"
)

// AllSections returns the sections in report order.
func AllSections() []Section {
	return []Section{
		ExecutiveSummary,
		GlobalOverview,
		MacroTrends,
		SectorHighlights,
		ConsumerInsights,
		InvestmentOutlook,
		RisksChallenges,
		Opportunities,
	}
}

// Title returns the Markdown heading text for the section.
func (s Section) Title() string {
	switch s {
	case ExecutiveSummary:
		return "EXECUTIVE SUMMARY"
	case GlobalOverview:
		return "GLOBAL MARKET OVERVIEW"
	case MacroTrends:
		return "MACRO TRENDS & DRIVERS"
	case SectorHighlights:
		return "SECTOR HIGHLIGHTS"
	case ConsumerInsights:
		return "CONSUMER INSIGHTS"
	case InvestmentOutlook:
		return "INVESTMENT & FINANCIAL OUTLOOK"
	case RisksChallenges:
		return "RISKS & CHALLENGES"
	case Opportunities:
		return "OPPORTUNITIES & RECOMMENDATIONS"
	default:
		return string(s)
	}
}
