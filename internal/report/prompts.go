package report

// Section instruction prompts. Each enumerates the sub-topics the agent
// must cover; the market data travels separately as the context payload.

const executiveSummaryPrompt = `Create an Executive Summary for a stock market report. Include:
1. Overall economic climate assessment
2. High-level opportunities and risks across markets
3. Key takeaways for investors and businesses

Make it concise but comprehensive, suitable for C-level executives.`

const globalOverviewPrompt = `Create a Global Market Overview section that covers:
1. Current size and growth of global economy
2. Key regions driving growth (North America, Asia-Pacific, Europe)
3. Broad market segmentation analysis
4. Cross-regional market correlations and trends`

const macroTrendsPrompt = `Analyze and describe Macro Trends & Drivers affecting markets:
1. Technology trends (AI, automation, digitalization)
2. Demographics (population shifts, urbanization, aging)
3. Environment & sustainability (climate policies, ESG focus)
4. Regulation & policy changes (trade, tariffs, taxes)

Focus on how these trends are currently impacting markets.`

const sectorHighlightsPrompt = `Provide Sector Highlights covering:
1. Performance analysis of major sectors (Technology, Healthcare, Financial, etc.)
2. Which sectors are expanding, contracting, or transforming
3. Sector rotation trends and implications
4. Key sector-specific opportunities and challenges`

const consumerInsightsPrompt = `Analyze Consumer Insights based on market data and news:
1. Shifts in consumer confidence and spending patterns
2. Behavioral changes (digital adoption, value-seeking, brand loyalty)
3. Impact on retail and consumer-facing sectors
4. Implications for businesses and investors`

const investmentOutlookPrompt = `Provide Investment & Financial Outlook covering:
1. Market confidence and risk appetite assessment
2. Capital flows and investment trends
3. Financial forecasts (GDP growth expectations, inflation outlook, interest rate trends)
4. Asset allocation recommendations`

const risksChallengesPrompt = `Identify and analyze Risks & Challenges:
1. Global risks (geopolitical tensions, supply chain disruptions, inflationary pressures)
2. Industry-agnostic business risks (cybersecurity, labor shortages)
3. Market-specific risks and vulnerabilities
4. Risk mitigation strategies`

const opportunitiesPrompt = `Provide Opportunities & Recommendations:
1. Growth opportunities across regions and sectors
2. Strategic actions for businesses (innovation, diversification, partnerships)
3. Investment recommendations for different risk profiles
4. Emerging market opportunities and trends to watch`

// Prompt returns the instruction prompt for the section.
func (s Section) Prompt() string {
	switch s {
	case ExecutiveSummary:
		return executiveSummaryPrompt
	case GlobalOverview:
		return globalOverviewPrompt
	case MacroTrends:
		return macroTrendsPrompt
	case SectorHighlights:
		return sectorHighlightsPrompt
	case ConsumerInsights:
		return consumerInsightsPrompt
	case InvestmentOutlook:
		return investmentOutlookPrompt
	case RisksChallenges:
		return risksChallengesPrompt
	case Opportunities:
		return opportunitiesPrompt
	default:
		return ""
	}
}
