package events

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownEventType = errors.New("unknown event type")

type Type string

const (
	SocialPost      Type = "social_post"
	PoliticianTrade Type = "politician_trade"
	MarketMove      Type = "market_move"
)

// Types is the closed set accepted by the simulator, in selector order.
var Types = []Type{SocialPost, PoliticianTrade, MarketMove}

// Result is the JSON body returned for a simulated event.
type Result struct {
	Event    string `json:"event"`
	Analysis string `json:"analysis"`
	Impact   string `json:"impact"`
}

var results = map[Type]Result{
	SocialPost: {
		Event:    "New social media activity detected",
		Analysis: "Increased mention of tech stocks on Reddit with positive sentiment.",
		Impact:   "Potential short-term bullish signal for NASDAQ.",
	},
	PoliticianTrade: {
		Event:    "New politician trade detected",
		Analysis: "Senator purchased significant shares in renewable energy sector.",
		Impact:   "Possible upcoming legislation favorable to clean energy.",
	},
	MarketMove: {
		Event:    "Unusual market movement detected",
		Analysis: "SPY experiencing higher than average volume in after-hours trading.",
		Impact:   "Preparing for potential volatility at market open.",
	},
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := results[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
	}
	return t, nil
}

func (t Type) Label() string {
	switch t {
	case SocialPost:
		return "Social Media Post"
	case PoliticianTrade:
		return "Politician Trade"
	case MarketMove:
		return "Market Movement"
	}
	return string(t)
}

// Simulate returns the canned result for t.
func Simulate(t Type) (Result, error) {
	r, ok := results[t]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownEventType, string(t))
	}
	return r, nil
}

// Picker is satisfied by *rand.Rand.
type Picker interface {
	Intn(n int) int
}

// Random picks uniformly from Types.
func Random(p Picker) Type {
	return Types[p.Intn(len(Types))]
}
