package market

import "time"

// PoliticianPost is one row of the index page's politician activity list.
type PoliticianPost struct {
	Politician string `json:"politician"`
	Content    string `json:"content"`
	Date       string `json:"date"`
	Impact     string `json:"impact"`
}

type AgentInsight struct {
	Timestamp string `json:"timestamp"`
	Agent     string `json:"agent"`
	Insight   string `json:"insight"`
	Tickers   string `json:"tickers"`
	Priority  string `json:"priority"`
}

func PoliticianPosts(now time.Time) []PoliticianPost {
	day := func(n int) string { return now.AddDate(0, 0, -n).Format("2006-01-02") }
	return []PoliticianPost{
		{Politician: "Senator A. Smith", Content: "Discussing tech regulation in committee today", Date: day(1), Impact: "Tech sector (Moderate)"},
		{Politician: "Rep. J. Johnson", Content: "Proposed new energy legislation", Date: day(2), Impact: "Energy sector (High)"},
		{Politician: "Senator B. Williams", Content: "Meeting with healthcare industry leaders", Date: day(3), Impact: "Healthcare sector (Low)"},
		{Politician: "President", Content: "Executive order on supply chain security", Date: day(5), Impact: "Manufacturing sector (High)"},
		{Politician: "Rep. D. Miller", Content: "Questioning Fed Chair on interest rates", Date: day(7), Impact: "Banking sector (Moderate)"},
	}
}

func AgentInsights(now time.Time) []AgentInsight {
	at := func(d time.Duration) string { return now.Add(-d).Format("15:04:05") }
	return []AgentInsight{
		{Timestamp: at(15 * time.Minute), Agent: "VolumeSpikeAgent", Insight: "Unusual volume detected in tech sector", Tickers: "AAPL, MSFT, NVDA", Priority: "High"},
		{Timestamp: at(45 * time.Minute), Agent: "PoliticianAgent", Insight: "New healthcare bill trending on social media", Tickers: "UNH, CVS, CI", Priority: "Medium"},
		{Timestamp: at(2 * time.Hour), Agent: "NewsAgent", Insight: "Positive earnings surprises in retail", Tickers: "WMT, TGT", Priority: "Medium"},
		{Timestamp: at(3 * time.Hour), Agent: "TrumpAgent", Insight: "Increased social media activity around energy", Tickers: "XOM, CVX", Priority: "Low"},
		{Timestamp: at(5 * time.Hour), Agent: "TechnicalAgent", Insight: "S&P 500 approaching key resistance level", Tickers: "SPY", Priority: "High"},
	}
}
