package market

import (
	"math"
	"sort"
	"strings"
	"time"
)

// SocialPost is one post in the social media overview.
type SocialPost struct {
	Platform  string  `json:"platform"`
	Author    string  `json:"author"`
	Content   string  `json:"content"`
	Ticker    string  `json:"ticker"`
	Timestamp string  `json:"timestamp"`
	Likes     int     `json:"likes"`
	Reposts   int     `json:"reposts"`
	Score     float64 `json:"sentiment_score"`
	Influence float64 `json:"influence_score"`
}

// SocialStats buckets posts by score: above 0.7 is positive, below 0.4 is
// negative, anything between is neutral. Percentages are rounded.
type SocialStats struct {
	Positive int `json:"positive_percentage"`
	Neutral  int `json:"neutral_percentage"`
	Negative int `json:"negative_percentage"`
	Total    int `json:"total_posts"`
}

type PlatformScore struct {
	Platform string `json:"platform"`
	Score    string `json:"score"`
	Split    Split  `json:"split"`
}

type TrendDay struct {
	Date     string `json:"date"`
	Positive int    `json:"positive"`
	Neutral  int    `json:"neutral"`
	Negative int    `json:"negative"`
}

type AssetMentions struct {
	Ticker   string `json:"ticker"`
	Mentions int    `json:"mentions"`
}

type Keyword struct {
	Word      string  `json:"word"`
	Size      int     `json:"size"`
	Sentiment float64 `json:"sentiment"`
}

type TrendingTopic struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Change      float64 `json:"sentiment_change"`
	Mentions    int     `json:"mentions"`
}

type Influencer struct {
	Rank      int    `json:"rank"`
	Name      string `json:"name"`
	Platform  string `json:"platform"`
	Impact    int    `json:"impact"`
	Followers string `json:"followers"`
}

// SocialOverview aggregates social chatter for one ticker, or for the whole
// market when Ticker is empty.
type SocialOverview struct {
	Ticker      string          `json:"ticker,omitempty"`
	LastUpdated string          `json:"last_updated"`
	Stats       SocialStats     `json:"sentiment_stats"`
	Platforms   []PlatformScore `json:"platform_sentiment"`
	TopPosts    []SocialPost    `json:"top_posts"`
	Trend       []TrendDay      `json:"sentiment_trend"`
	TopAssets   []AssetMentions `json:"top_assets"`
	Keywords    []Keyword       `json:"top_keywords"`
	Topics      []TrendingTopic `json:"trending_topics"`
	Influencers []Influencer    `json:"top_influencers"`
}

// Scope names what the overview covers.
func (o SocialOverview) Scope() string {
	if o.Ticker == "" {
		return "Overall Market"
	}
	return o.Ticker
}

// MarketTickers are the symbols sampled for the whole-market overview.
var MarketTickers = []string{"AAPL", "TSLA", "MSFT", "AMZN", "NVDA"}

type postTemplate struct {
	content string
	score   float64
}

var socialTemplates = map[string][]postTemplate{
	"AAPL": {
		{"Apple's innovation continues to lead the tech industry! $AAPL", 0.85},
		{"Just heard AAPL might be entering the AI race with their own models!", 0.78},
		{"AAPL services revenue hit another record this quarter. Strong growth!", 0.81},
		{"Apple's supply chain challenges in China could impact next quarter $AAPL", 0.42},
		{"Do you think AAPL stock will split again soon? The price is getting high.", 0.55},
	},
	"MSFT": {
		{"Microsoft's cloud business growth is impressive! $MSFT leading the way", 0.87},
		{"MSFT integrating AI everywhere: Office, Azure, Windows. Smart strategy!", 0.82},
		{"Microsoft Teams vs Slack, MSFT clearly winning the enterprise battle", 0.76},
		{"MSFT layoffs concerning, but probably necessary to stay competitive", 0.48},
		{"Is Microsoft (MSFT) too dependent on enterprise spending in a recession?", 0.39},
	},
	"TSLA": {
		{"Tesla's manufacturing efficiency is years ahead of competition $TSLA", 0.84},
		{"TSLA expanding into energy storage is a game-changer for the grid", 0.88},
		{"Tesla FSD beta is improving fast! $TSLA ahead in autonomous driving", 0.79},
		{"TSLA facing increased EV competition. Ford and GM catching up?", 0.41},
		{"Tesla's China sales dropped last month. TSLA needs new markets.", 0.35},
	},
	"AMZN": {
		{"Amazon AWS growth recovering after slowdown. AMZN back on track!", 0.82},
		{"AMZN logistics network is their real competitive advantage", 0.77},
		{"Amazon's advertising business becoming a major revenue source $AMZN", 0.80},
		{"AMZN facing unionization pressure at more warehouses. Costs may rise.", 0.38},
		{"Amazon (AMZN) Prime price increases, will customers keep paying?", 0.45},
	},
	"GOOGL": {
		{"Google's AI search integration is revolutionary! $GOOGL", 0.89},
		{"GOOGL ad revenue still growing despite competition from TikTok", 0.74},
		{"Google Cloud gaining market share from AWS. Good for GOOGL diversification", 0.81},
		{"GOOGL facing more antitrust scrutiny in EU. Legal battles ahead.", 0.32},
		{"Google's moonshot investments (GOOGL), are they wasting money?", 0.47},
	},
}

// genericTemplates are used for any symbol without its own set; %s is the
// symbol.
var genericTemplates = []postTemplate{
	{"%s showing strong technical patterns for a breakout", 0.82},
	{"Latest earnings for %s exceeded analyst expectations", 0.78},
	{"%s announced new partnerships that should drive growth", 0.75},
	{"Is %s overvalued at current prices? Seeing some weakness", 0.42},
	{"%s facing regulatory scrutiny that could impact operations", 0.35},
}

var (
	truthAuthors  = []string{"TruthSpeaker", "AmericanPatriot", "FinanceFreedom", "TruthSocial_Insider", "WallStMaverick"}
	redditAuthors = []string{"DeepValueInvestor", "MarketSage", "BullishAnalyst", "StockPickGuru", "ValueHunter"}
	postLikes     = []int{420, 310, 265, 140, 95}
)

// SocialPosts returns the mocked posts for symbol, alternating between Truth
// Social and Reddit, newest first.
func SocialPosts(symbol string, now time.Time) []SocialPost {
	sym := normalize(symbol)
	tmpls, ok := socialTemplates[sym]
	if !ok {
		tmpls = genericTemplates
	}
	out := make([]SocialPost, 0, len(tmpls))
	for i, t := range tmpls {
		content := t.content
		if !ok {
			content = strings.ReplaceAll(content, "%s", sym)
		}
		p := SocialPost{
			Platform:  "Truth Social",
			Author:    truthAuthors[(len(sym)+i)%len(truthAuthors)],
			Content:   content,
			Ticker:    sym,
			Timestamp: now.Add(-time.Duration(i) * 3 * time.Hour).UTC().Format(time.RFC3339),
			Likes:     postLikes[i%len(postLikes)],
			Score:     t.score,
		}
		if i%2 == 1 {
			p.Platform = "Reddit"
			p.Author = redditAuthors[(len(sym)+i)%len(redditAuthors)]
		}
		p.Reposts = p.Likes / 3
		p.Influence = round1((p.Score*2 + float64(p.Likes)/100) / 3)
		out = append(out, p)
	}
	return out
}

// SocialMediaOverview builds the aggregated overview. An empty ticker covers
// MarketTickers.
func SocialMediaOverview(ticker string, now time.Time) SocialOverview {
	sym := normalize(ticker)
	var posts []SocialPost
	if sym != "" {
		posts = SocialPosts(sym, now)
	} else {
		for _, t := range MarketTickers {
			posts = append(posts, SocialPosts(t, now)...)
		}
	}
	stats := socialStats(posts)

	top := make([]SocialPost, len(posts))
	copy(top, posts)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Influence > top[j].Influence })

	return SocialOverview{
		Ticker:      sym,
		LastUpdated: now.Format("2006-01-02 15:04:05"),
		Stats:       stats,
		Platforms: []PlatformScore{
			{Platform: "Twitter", Score: "2.8", Split: Split{Positive: 65, Neutral: 25, Negative: 10}},
			{Platform: "Reddit", Score: "1.5", Split: Split{Positive: 55, Neutral: 30, Negative: 15}},
			{Platform: "Discord", Score: "0.7", Split: Split{Positive: 35, Neutral: 40, Negative: 25}},
			{Platform: "YouTube", Score: "2.3", Split: Split{Positive: 60, Neutral: 30, Negative: 10}},
		},
		TopPosts: top,
		Trend:    socialTrend(now, stats),
		TopAssets: []AssetMentions{
			{"AAPL", 350}, {"TSLA", 280}, {"MSFT", 220}, {"AMZN", 180}, {"NVDA", 150},
		},
		Keywords: []Keyword{
			{"earnings", 22, 2.5}, {"revenue", 18, 1.8}, {"growth", 20, 3.2},
			{"layoffs", 16, -2.1}, {"AI", 24, 4.5}, {"blockchain", 18, 0.8},
			{"regulation", 16, -1.2}, {"innovation", 19, 2.8}, {"competition", 17, -0.5},
			{"launch", 18, 2.3}, {"market", 21, 1.1}, {"bearish", 16, -2.4},
			{"bullish", 19, 3.1}, {"stock", 20, 0.7}, {"investors", 17, 1.5},
		},
		Topics: []TrendingTopic{
			{"AI Integration", "Companies incorporating AI into products", 4.5, 1240},
			{"Quarterly Earnings", "Tech sector outperforming expectations", 3.8, 980},
			{"Regulatory Concerns", "New antitrust investigations announced", -2.3, 760},
			{"Green Energy", "Renewable investments growing", 2.1, 650},
			{"Supply Chain Issues", "Manufacturing delays reported", -1.8, 520},
		},
		Influencers: []Influencer{
			{1, "MarketWatcher", "Twitter", 5, "2.3M"},
			{2, "FinTechAnalyst", "Twitter", 4, "1.8M"},
			{3, "CryptoKing", "Reddit", 4, "950K"},
			{4, "WallStreetWiz", "Twitter", 3, "780K"},
			{5, "TechInvestor", "YouTube", 3, "670K"},
		},
	}
}

func socialStats(posts []SocialPost) SocialStats {
	var pos, neu, neg int
	for _, p := range posts {
		switch {
		case p.Score > 0.7:
			pos++
		case p.Score >= 0.4:
			neu++
		default:
			neg++
		}
	}
	s := SocialStats{Total: len(posts)}
	if s.Total == 0 {
		return s
	}
	pct := func(n int) int { return int(math.Round(float64(n) / float64(s.Total) * 100)) }
	s.Positive, s.Neutral, s.Negative = pct(pos), pct(neu), pct(neg)
	return s
}

// socialTrend covers the last seven days; today is the live stats.
func socialTrend(now time.Time, today SocialStats) []TrendDay {
	pos := []int{45, 52, 58, 62, 55, 60}
	neu := []int{40, 35, 30, 25, 30, 25}
	neg := []int{15, 13, 12, 13, 15, 15}
	out := make([]TrendDay, 0, 7)
	for i := range pos {
		out = append(out, TrendDay{
			Date:     now.AddDate(0, 0, i-6).Format("2006-01-02"),
			Positive: pos[i],
			Neutral:  neu[i],
			Negative: neg[i],
		})
	}
	return append(out, TrendDay{
		Date:     now.Format("2006-01-02"),
		Positive: today.Positive,
		Neutral:  today.Neutral,
		Negative: today.Negative,
	})
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
