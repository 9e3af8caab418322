package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"finhacker/internal/dashboard"
	"finhacker/internal/market"
	"finhacker/internal/monitor"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	activeTab   = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("14")).Padding(0, 1)
	idleTab     = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 1)
	chartStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

const minWidth = 40

// RenderPulse draws the market strip on one line.
func RenderPulse(assets []monitor.Asset) string {
	parts := make([]string, 0, len(assets))
	for _, a := range assets {
		st, caret := upStyle, "▲"
		if a.Direction() == monitor.Down {
			st, caret = downStyle, "▼"
		}
		parts = append(parts, fmt.Sprintf("%s %s %s",
			dimStyle.Render(a.Name),
			monitor.FormatPrice(a.Price),
			st.Render(caret+" "+monitor.FormatChange(a.Change))))
	}
	return strings.Join(parts, "   ")
}

// RenderTabs draws the tab bar with the active tab highlighted.
func RenderTabs(active dashboard.Tab) string {
	parts := make([]string, 0, len(dashboard.Tabs))
	for i, t := range dashboard.Tabs {
		label := fmt.Sprintf("%d %s", i+1, t.Label())
		if t == active {
			parts = append(parts, activeTab.Render(label))
		} else {
			parts = append(parts, idleTab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// RenderPanel renders the active panel of v as plain terminal text.
func RenderPanel(v dashboard.View, width int) string {
	if width < minWidth {
		width = minWidth
	}
	var b strings.Builder
	if v.Notice != "" {
		b.WriteString(noticeStyle.Render(v.Notice))
		b.WriteString("\n\n")
	}
	if v.Missing {
		b.WriteString(dimStyle.Render("Nothing to show for this ticker."))
		return b.String()
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s · %s", v.Resolution.Symbol, v.Name, v.Selection.Tab.Label())))
	b.WriteString("\n\n")

	switch v.Selection.Tab {
	case dashboard.Sentiment:
		renderSentiment(&b, v, width)
	case dashboard.Politicians:
		renderTrades(&b, v.Analysis.Trades, width)
	case dashboard.Technical:
		renderTechnical(&b, v.Analysis.Technical, width)
	case dashboard.Fundamental:
		renderFundamental(&b, v.Analysis.Fundamental, width)
	}
	return b.String()
}

func wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	return t
}

func renderSentiment(b *strings.Builder, v dashboard.View, width int) {
	s := v.Analysis.Sentiment
	b.WriteString(wrap(s.Summary, width))
	b.WriteString("\n\n")

	t := newTable()
	t.AppendHeader(table.Row{"Platform", "Positive", "Neutral", "Negative"})
	for _, p := range s.Platforms() {
		t.AppendRow(table.Row{
			p.Platform,
			text.FgGreen.Sprintf("%d%%", p.Split.Positive),
			fmt.Sprintf("%d%%", p.Split.Neutral),
			text.FgRed.Sprintf("%d%%", p.Split.Negative),
		})
	}
	b.WriteString(t.Render())
	b.WriteString("\n\n")

	tt := newTable()
	tt.SetTitle("Key Topics")
	tt.AppendHeader(table.Row{"Topic", "Sentiment", "Mentions"})
	for _, topic := range v.Topics {
		tt.AppendRow(table.Row{topic.Topic, colorSentiment(topic.Sentiment), topic.Mentions})
	}
	b.WriteString(tt.Render())
}

func colorSentiment(s string) string {
	switch strings.ToLower(s) {
	case "positive":
		return text.FgGreen.Sprint(s)
	case "negative":
		return text.FgRed.Sprint(s)
	}
	return s
}

func renderTrades(b *strings.Builder, tr market.Trades, width int) {
	b.WriteString(wrap(tr.Summary, width))
	b.WriteString("\n\n")

	t := newTable()
	t.AppendHeader(table.Row{"Politician", "Party", "Date", "Action", "Amount", "Timing"})
	for _, x := range tr.Trades {
		action := text.FgRed.Sprint(x.Action)
		if x.Action == market.ActionBuy {
			action = text.FgGreen.Sprint(x.Action)
		}
		t.AppendRow(table.Row{x.Politician, x.Party, x.Date, action, x.Amount, x.Timing})
	}
	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(wrap("Trading Pattern Analysis: "+tr.Pattern, width))
}

func renderTechnical(b *strings.Builder, tech market.Technical, width int) {
	b.WriteString(wrap(tech.Summary, width))
	b.WriteString("\n\n")

	if chart := PriceChart(tech.Chart, width, 12); chart != "" {
		b.WriteString(chart)
		b.WriteString("\n\n")
	}

	t := newTable()
	t.AppendHeader(table.Row{"Pattern", "Status", "Confidence", "Target"})
	for _, p := range tech.Patterns {
		t.AppendRow(table.Row{p.Name, p.Status, p.Confidence, p.Target})
	}
	b.WriteString(t.Render())
	b.WriteString("\n\n")

	fmt.Fprintf(b, "Resistance: %s\n", downStyle.Render(strings.Join(tech.Resistance, "  ")))
	fmt.Fprintf(b, "Support:    %s\n", upStyle.Render(strings.Join(tech.Support, "  ")))
	fmt.Fprintf(b, "RSI (14):   %d %s", tech.RSI.Value, tech.RSI.Label)
}

// PriceChart draws the closing prices as a braille line chart. It returns ""
// when there are fewer than two points.
func PriceChart(pts []market.ChartPoint, width, height int) string {
	if len(pts) < 2 {
		return ""
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		lo = math.Min(lo, p.Price)
		hi = math.Max(hi, p.Price)
	}
	margin := (hi - lo) * 0.1
	if margin == 0 {
		margin = 1
	}

	xLabel := func(_ int, v float64) string {
		i := int(math.Round(v))
		if i < 0 || i >= len(pts) {
			return ""
		}
		return pts[i].Date
	}
	yLabel := func(_ int, v float64) string {
		return fmt.Sprintf("%.0f", v)
	}

	lc := linechart.New(width, height,
		0, float64(len(pts)-1),
		lo-margin, hi+margin,
		linechart.WithXYSteps(len(pts)-1, 4),
		linechart.WithXLabelFormatter(xLabel),
		linechart.WithYLabelFormatter(yLabel),
		linechart.WithStyles(lipgloss.Style{}, lipgloss.Style{}, chartStyle),
	)
	for i := 0; i < len(pts)-1; i++ {
		p1 := canvas.Float64Point{X: float64(i), Y: pts[i].Price}
		p2 := canvas.Float64Point{X: float64(i + 1), Y: pts[i+1].Price}
		lc.DrawBrailleLineWithStyle(p1, p2, chartStyle)
	}
	lc.DrawXYAxisAndLabel()
	return lc.View()
}

func renderFundamental(b *strings.Builder, f market.Fundamental, width int) {
	b.WriteString(wrap(f.Summary, width))
	b.WriteString("\n\n")

	m := newTable()
	m.AppendHeader(table.Row{"Revenue (TTM)", "EPS (TTM)", "P/E", "Dividend Yield", "Debt/Equity"})
	m.AppendRow(table.Row{f.Metrics.Revenue, f.Metrics.EPS, f.Metrics.PERatio, f.Metrics.DividendYield, f.Metrics.DebtToEquity})
	b.WriteString(m.Render())
	b.WriteString("\n\n")

	cs := f.CallSentiment
	fmt.Fprintf(b, "Earnings call: %s  %d%% neutral  %s\n",
		upStyle.Render(fmt.Sprintf("%d%% positive", cs.Positive)),
		cs.Neutral,
		downStyle.Render(fmt.Sprintf("%d%% negative", cs.Negative)))
	if len(cs.KeyTopics) > 0 {
		b.WriteString(dimStyle.Render("Topics: " + strings.Join(cs.KeyTopics, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	q := newTable()
	q.AppendHeader(table.Row{"Quarter", "Revenue ($B)", "Net Income ($B)", "EPS"})
	for _, x := range f.Quarters {
		q.AppendRow(table.Row{x.Quarter, x.Revenue, x.NetIncome, x.EPS})
	}
	b.WriteString(q.Render())
	b.WriteString("\n\n")

	c := f.Consensus
	fmt.Fprintf(b, "Analyst consensus: %s, target %s (%d%%)\n", titleStyle.Render(c.Rating), c.PriceTarget, c.TargetProgress)
	r := newTable()
	r.AppendHeader(table.Row{"Rating", "Analysts", "Share"})
	for _, bar := range c.Ratings() {
		r.AppendRow(table.Row{bar.Label, fmt.Sprintf("%d/%d", bar.Count, bar.Total), fmt.Sprintf("%.0f%%", bar.Percent)})
	}
	b.WriteString(r.Render())
	fmt.Fprintf(b, "\nFY25 revenue %s · FY25 EPS %s · 5-yr growth %s", c.RevenueEstimate, c.EPSEstimate, c.GrowthEstimate)
}
