package market_test

import (
	"testing"
	"time"

	"finhacker/internal/market"
)

func TestSocialMediaOverview_SingleTicker(t *testing.T) {
	now := time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC)
	o := market.SocialMediaOverview(" aapl ", now)

	if o.Ticker != "AAPL" || o.Scope() != "AAPL" {
		t.Errorf("Expected AAPL scope, got %q", o.Scope())
	}
	want := market.SocialStats{Positive: 60, Neutral: 40, Negative: 0, Total: 5}
	if o.Stats != want {
		t.Errorf("Expected %+v, got %+v", want, o.Stats)
	}
	if len(o.TopPosts) != 5 {
		t.Fatalf("Expected 5 posts, got %d", len(o.TopPosts))
	}
	for i, p := range o.TopPosts {
		if p.Ticker != "AAPL" {
			t.Errorf("post %d: expected AAPL, got %s", i, p.Ticker)
		}
		if i > 0 && p.Influence > o.TopPosts[i-1].Influence {
			t.Errorf("post %d: not sorted by influence", i)
		}
		if p.Reposts != p.Likes/3 {
			t.Errorf("post %d: expected %d reposts, got %d", i, p.Likes/3, p.Reposts)
		}
	}
	if top := o.TopPosts[0]; top.Influence != 2.0 || top.Score != 0.85 {
		t.Errorf("Expected the 0.85 post first with influence 2.0, got %+v", top)
	}

	if len(o.Trend) != 7 {
		t.Fatalf("Expected 7 trend days, got %d", len(o.Trend))
	}
	if o.Trend[0].Date != "2025-04-14" || o.Trend[6].Date != "2025-04-20" {
		t.Errorf("unexpected trend range %s..%s", o.Trend[0].Date, o.Trend[6].Date)
	}
	if o.Trend[6].Positive != 60 || o.Trend[6].Neutral != 40 {
		t.Errorf("today's trend should carry the live stats, got %+v", o.Trend[6])
	}
}

func TestSocialMediaOverview_WholeMarket(t *testing.T) {
	now := time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC)
	o := market.SocialMediaOverview("", now)

	if o.Ticker != "" || o.Scope() != "Overall Market" {
		t.Errorf("Expected the market scope, got %q", o.Scope())
	}
	want := market.SocialStats{Positive: 60, Neutral: 24, Negative: 16, Total: 25}
	if o.Stats != want {
		t.Errorf("Expected %+v, got %+v", want, o.Stats)
	}
	counts := map[string]int{}
	for _, p := range o.TopPosts {
		counts[p.Ticker]++
	}
	for _, sym := range market.MarketTickers {
		if counts[sym] != 5 {
			t.Errorf("%s: expected 5 posts, got %d", sym, counts[sym])
		}
	}
}

func TestSocialPosts_GenericSymbol(t *testing.T) {
	posts := market.SocialPosts("xyz", time.Unix(0, 0))
	if len(posts) != 5 {
		t.Fatalf("Expected 5 posts, got %d", len(posts))
	}
	if posts[0].Content != "XYZ showing strong technical patterns for a breakout" {
		t.Errorf("unexpected content %q", posts[0].Content)
	}
	if posts[0].Platform != "Truth Social" || posts[1].Platform != "Reddit" {
		t.Errorf("platforms should alternate, got %s then %s", posts[0].Platform, posts[1].Platform)
	}
}
