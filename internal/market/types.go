package market

import "slices"

type Stock struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Name   string `yaml:"name" json:"name"`
}

// Split is a percentage breakdown of mentions for one platform.
type Split struct {
	Positive int `yaml:"positive" json:"positive"`
	Neutral  int `yaml:"neutral" json:"neutral"`
	Negative int `yaml:"negative" json:"negative"`
}

func (s Split) Total() int { return s.Positive + s.Neutral + s.Negative }

type Topic struct {
	Topic     string `yaml:"topic" json:"topic"`
	Sentiment string `yaml:"sentiment" json:"sentiment"`
	Mentions  int    `yaml:"mentions" json:"mentions"`
}

type Sentiment struct {
	Summary string `yaml:"summary" json:"summary"`
	Reddit  Split  `yaml:"reddit" json:"reddit"`
	Twitter Split  `yaml:"twitter" json:"twitter"`
	Truth   Split  `yaml:"truth" json:"truth"`
}

type PlatformSplit struct {
	Platform string `json:"platform"`
	Split    Split  `json:"split"`
}

// Platforms returns the splits in display order.
func (s Sentiment) Platforms() []PlatformSplit {
	return []PlatformSplit{
		{Platform: "Reddit", Split: s.Reddit},
		{Platform: "X", Split: s.Twitter},
		{Platform: "Truth Social", Split: s.Truth},
	}
}

const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"

	PartyDemocrat   = "D"
	PartyRepublican = "R"
)

type Trade struct {
	Politician string `yaml:"politician" json:"politician"`
	Party      string `yaml:"party" json:"party"`
	Date       string `yaml:"date" json:"date"`
	Action     string `yaml:"action" json:"action"`
	Amount     string `yaml:"amount" json:"amount"`
	Timing     string `yaml:"timing" json:"timing"`
}

type Trades struct {
	Summary string  `yaml:"summary" json:"summary"`
	Pattern string  `yaml:"pattern" json:"pattern"`
	Trades  []Trade `yaml:"trades" json:"trades"`
}

type Pattern struct {
	Name       string `yaml:"name" json:"name"`
	Status     string `yaml:"status" json:"status"`
	Confidence string `yaml:"confidence" json:"confidence"`
	Target     string `yaml:"target" json:"target"`
}

type ChartPoint struct {
	Date   string  `yaml:"date" json:"date"`
	Price  float64 `yaml:"price" json:"price"`
	MA50   float64 `yaml:"ma50" json:"ma50"`
	MA200  float64 `yaml:"ma200" json:"ma200"`
	Volume float64 `yaml:"volume" json:"volume"`
}

type RSI struct {
	Value int    `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

type Technical struct {
	Summary    string       `yaml:"summary" json:"summary"`
	Patterns   []Pattern    `yaml:"patterns" json:"patterns"`
	Chart      []ChartPoint `yaml:"chart" json:"chart"`
	Resistance []string     `yaml:"resistance" json:"resistance"`
	Support    []string     `yaml:"support" json:"support"`
	RSI        RSI          `yaml:"rsi" json:"rsi"`
}

type CallSentiment struct {
	Positive  int      `yaml:"positive" json:"positive"`
	Negative  int      `yaml:"negative" json:"negative"`
	Neutral   int      `yaml:"neutral" json:"neutral"`
	KeyTopics []string `yaml:"key_topics" json:"key_topics"`
}

type Metrics struct {
	Revenue       string `yaml:"revenue" json:"revenue"`
	EPS           string `yaml:"eps" json:"eps"`
	PERatio       string `yaml:"pe_ratio" json:"pe_ratio"`
	DividendYield string `yaml:"dividend_yield" json:"dividend_yield"`
	DebtToEquity  string `yaml:"debt_to_equity" json:"debt_to_equity"`
}

type Quarter struct {
	Quarter   string  `yaml:"quarter" json:"quarter"`
	Revenue   float64 `yaml:"revenue" json:"revenue"`
	NetIncome float64 `yaml:"net_income" json:"net_income"`
	EPS       float64 `yaml:"eps" json:"eps"`
}

// Consensus is the analyst block. Rating counts are out of Total.
type Consensus struct {
	Rating          string `yaml:"rating" json:"rating"`
	PriceTarget     string `yaml:"price_target" json:"price_target"`
	TargetProgress  int    `yaml:"target_progress" json:"target_progress"`
	StrongBuy       int    `yaml:"strong_buy" json:"strong_buy"`
	Buy             int    `yaml:"buy" json:"buy"`
	Hold            int    `yaml:"hold" json:"hold"`
	Sell            int    `yaml:"sell" json:"sell"`
	Total           int    `yaml:"total" json:"total"`
	RevenueEstimate string `yaml:"revenue_estimate" json:"revenue_estimate"`
	EPSEstimate     string `yaml:"eps_estimate" json:"eps_estimate"`
	GrowthEstimate  string `yaml:"growth_estimate" json:"growth_estimate"`
}

type RatingBar struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

func (c Consensus) Ratings() []RatingBar {
	bar := func(label string, n int) RatingBar {
		pct := 0.0
		if c.Total > 0 {
			pct = float64(n) / float64(c.Total) * 100
		}
		return RatingBar{Label: label, Count: n, Total: c.Total, Percent: pct}
	}
	return []RatingBar{
		bar("Strong Buy", c.StrongBuy),
		bar("Buy", c.Buy),
		bar("Hold", c.Hold),
		bar("Sell", c.Sell),
	}
}

type Fundamental struct {
	Summary       string        `yaml:"summary" json:"summary"`
	CallSentiment CallSentiment `yaml:"call_sentiment" json:"call_sentiment"`
	Metrics       Metrics       `yaml:"metrics" json:"metrics"`
	Quarters      []Quarter     `yaml:"quarters" json:"quarters"`
	Consensus     Consensus     `yaml:"consensus" json:"consensus"`
}

// Analysis is the full per-ticker record.
type Analysis struct {
	Symbol      string      `yaml:"symbol" json:"symbol"`
	Sentiment   Sentiment   `yaml:"sentiment" json:"sentiment"`
	Trades      Trades      `yaml:"trades" json:"trades"`
	Technical   Technical   `yaml:"technical" json:"technical"`
	Fundamental Fundamental `yaml:"fundamental" json:"fundamental"`
}

// Clone returns a copy of a that shares no slices with it.
func (a Analysis) Clone() Analysis {
	a.Trades.Trades = slices.Clone(a.Trades.Trades)
	a.Technical.Patterns = slices.Clone(a.Technical.Patterns)
	a.Technical.Chart = slices.Clone(a.Technical.Chart)
	a.Technical.Resistance = slices.Clone(a.Technical.Resistance)
	a.Technical.Support = slices.Clone(a.Technical.Support)
	a.Fundamental.CallSentiment.KeyTopics = slices.Clone(a.Fundamental.CallSentiment.KeyTopics)
	a.Fundamental.Quarters = slices.Clone(a.Fundamental.Quarters)
	return a
}
