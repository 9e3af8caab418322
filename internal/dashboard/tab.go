package dashboard

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTab = errors.New("unknown tab")

type Tab string

const (
	Sentiment   Tab = "sentiment"
	Politicians Tab = "politicians"
	Technical   Tab = "technical"
	Fundamental Tab = "fundamental"
)

// Tabs lists the panels in display order.
var Tabs = []Tab{Sentiment, Politicians, Technical, Fundamental}

// form values posted by older pages
var tabAliases = map[string]Tab{
	"politician_trades": Politicians,
	"fundamentals":      Fundamental,
}

func ParseTab(s string) (Tab, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	for _, t := range Tabs {
		if string(t) == k {
			return t, nil
		}
	}
	if t, ok := tabAliases[k]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTab, s)
}

func (t Tab) Label() string {
	switch t {
	case Sentiment:
		return "Sentiment"
	case Politicians:
		return "Politician Trades"
	case Technical:
		return "Technical Analysis"
	case Fundamental:
		return "Fundamentals"
	}
	return string(t)
}

// Next and Prev cycle through Tabs.
func (t Tab) Next() Tab { return t.offset(1) }
func (t Tab) Prev() Tab { return t.offset(-1) }

func (t Tab) offset(d int) Tab {
	for i, x := range Tabs {
		if x == t {
			return Tabs[(i+d+len(Tabs))%len(Tabs)]
		}
	}
	return Sentiment
}
