package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"finhacker/internal/dashboard"
	"finhacker/internal/market"
	"finhacker/internal/monitor"
)

func newTestModel() *Model {
	mon := monitor.New(nil, monitor.NewRand(1), monitor.Options{Interval: time.Millisecond})
	return NewModel(market.MustDefault(), mon)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_TabNavigation(t *testing.T) {
	m := newTestModel()

	m.Update(key("tab"))
	if got := m.Selection().Tab; got != dashboard.Politicians {
		t.Errorf("Expected politicians, got %s", got)
	}
	m.Update(key("shift+tab"))
	m.Update(key("shift+tab"))
	if got := m.Selection().Tab; got != dashboard.Fundamental {
		t.Errorf("Expected wrap to fundamental, got %s", got)
	}
	m.Update(key("3"))
	if got := m.Selection().Tab; got != dashboard.Technical {
		t.Errorf("Expected technical, got %s", got)
	}
}

func TestModel_StockNavigation(t *testing.T) {
	m := newTestModel()

	m.Update(key("down"))
	if got := m.Selection().Stock; got != "MSFT" {
		t.Errorf("Expected MSFT, got %s", got)
	}
	m.Update(key("up"))
	m.Update(key("up"))
	if got := m.Selection().Stock; got != "TSLA" {
		t.Errorf("Expected wrap to TSLA, got %s", got)
	}
}

func TestModel_TickAdvancesMonitor(t *testing.T) {
	m := newTestModel()
	if m.snap.Seq != 0 {
		t.Fatalf("Expected seq 0, got %d", m.snap.Seq)
	}
	_, cmd := m.Update(tickMsg(time.Now()))
	if m.snap.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", m.snap.Seq)
	}
	if cmd == nil {
		t.Error("Expected the next tick to be scheduled")
	}
}

func TestModel_QuitStopsTicking(t *testing.T) {
	m := newTestModel()
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if _, next := m.Update(tickMsg(time.Now())); next != nil {
		t.Error("tick rescheduled after quit")
	}
	if m.View() != "" {
		t.Error("Expected empty view after quit")
	}
}

func TestModel_View(t *testing.T) {
	m := newTestModel()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	out := m.View()
	for _, want := range []string{"Bitcoin", "$63,458.75", "AAPL", "Key Topics", "Reddit"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRenderPanel_EveryTab(t *testing.T) {
	cat := market.MustDefault()
	wants := map[dashboard.Tab][]string{
		dashboard.Sentiment:   {"Truth Social", "Product Announcements"},
		dashboard.Politicians: {"Politician", "Trading Pattern Analysis"},
		dashboard.Technical:   {"Resistance", "RSI (14)"},
		dashboard.Fundamental: {"Analyst consensus", "Strong Buy"},
	}
	for tab, want := range wants {
		v := dashboard.Build(cat, dashboard.Selection{Stock: "AMZN", Tab: tab}, market.FallbackToDefault)
		out := RenderPanel(v, 100)
		for _, w := range want {
			if !strings.Contains(out, w) {
				t.Errorf("%s panel missing %q", tab, w)
			}
		}
	}
}

func TestRenderPanel_FallbackNotice(t *testing.T) {
	v := dashboard.Build(market.MustDefault(), dashboard.Selection{Stock: "NVDA", Tab: dashboard.Sentiment}, market.FallbackToDefault)
	if out := RenderPanel(v, 80); !strings.Contains(out, "No data for NVDA") {
		t.Error("Expected fallback notice")
	}
}

func TestPriceChart(t *testing.T) {
	if PriceChart(nil, 60, 10) != "" {
		t.Error("Expected no chart for empty data")
	}
	a, _ := market.MustDefault().Lookup("AAPL")
	if PriceChart(a.Technical.Chart, 60, 10) == "" {
		t.Error("Expected a chart")
	}
}
