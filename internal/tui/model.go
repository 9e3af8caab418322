package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"finhacker/internal/dashboard"
	"finhacker/internal/market"
	"finhacker/internal/monitor"
)

type tickMsg time.Time

// Model is the terminal dashboard. The monitor is ticked from Update, so it
// stops with the program.
type Model struct {
	dash   *dashboard.Container
	mon    *monitor.Monitor
	stocks []market.Stock

	snap     monitor.Snapshot
	stockIdx int
	width    int
	quitting bool
}

func NewModel(cat *market.Catalog, mon *monitor.Monitor) *Model {
	return &Model{
		dash:   dashboard.NewContainer(cat),
		mon:    mon,
		stocks: cat.Stocks(),
		snap:   mon.Snapshot(),
		width:  100,
	}
}

func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.mon.Interval(), func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		if m.quitting {
			return m, nil
		}
		m.snap = m.mon.Tick()
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sel := m.dash.Selection()
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "tab", "right", "l":
		_, _ = m.dash.SelectTab(sel.Tab.Next())
	case "shift+tab", "left", "h":
		_, _ = m.dash.SelectTab(sel.Tab.Prev())
	case "1", "2", "3", "4":
		_, _ = m.dash.SelectTab(dashboard.Tabs[msg.String()[0]-'1'])
	case "down", "j":
		m.selectStock(m.stockIdx + 1)
	case "up", "k":
		m.selectStock(m.stockIdx - 1)
	}
	return m, nil
}

func (m *Model) selectStock(i int) {
	n := len(m.stocks)
	if n == 0 {
		return
	}
	m.stockIdx = (i%n + n) % n
	m.dash.SelectStock(m.stocks[m.stockIdx].Symbol)
}

func (m *Model) Selection() dashboard.Selection { return m.dash.Selection() }

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	sel := m.dash.Selection()

	var b strings.Builder
	b.WriteString(RenderPulse(m.snap.Assets))
	b.WriteString("\n\n")

	symbols := make([]string, len(m.stocks))
	for i, s := range m.stocks {
		if s.Symbol == sel.Stock {
			symbols[i] = activeTab.Render(s.Symbol)
		} else {
			symbols[i] = idleTab.Render(s.Symbol)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, symbols...))
	b.WriteString("\n")
	b.WriteString(RenderTabs(sel.Tab))
	b.WriteString("\n\n")
	b.WriteString(RenderPanel(m.dash.Render(), m.width-2))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("↑/↓ ticker · ←/→ or tab panel · 1-4 jump · q quit"))
	return b.String()
}

// Run starts the program on the alternate screen and blocks until it quits
// or ctx is done.
func Run(ctx context.Context, cat *market.Catalog, mon *monitor.Monitor) error {
	p := tea.NewProgram(NewModel(cat, mon), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
