package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"finhacker/internal/events"
	"finhacker/internal/market"
	"finhacker/internal/monitor"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static holds the page script served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

const (
	chartWidth  = 600
	chartHeight = 160
)

var funcs = template.FuncMap{
	"price":       monitor.FormatPrice,
	"change":      monitor.FormatChange,
	"changeClass": changeClass,
	"caretClass":  caretClass,
	"domPrefix":   DOMPrefix,
	"lower":       strings.ToLower,
	"pct":         func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
	"topicClass":  topicClass,
	"partyClass":  partyClass,
	"actionClass": actionClass,
	"chartPoints": chartPoints,
	"chartWidth":  func() int { return chartWidth },
	"chartHeight": func() int { return chartHeight },
}

// Page is the data for the full index page.
type Page struct {
	Title      string
	View       View
	Tabs       []Tab
	Pulse      []monitor.Asset
	EventTypes []events.Type
	Posts      []market.PoliticianPost
	Insights   []market.AgentInsight
	// Prefill renders the active panel server side; otherwise the script
	// fills #analysis-content on mount.
	Prefill   bool
	RefreshMS int64
	DismissMS int64
}

type Renderer struct {
	t *template.Template
}

func NewRenderer() (*Renderer, error) {
	t, err := template.New("dashboard").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{t: t}, nil
}

// Fragment writes the active panel for v, the body returned by /analyze_ticker.
func (r *Renderer) Fragment(w io.Writer, v View) error {
	return r.t.ExecuteTemplate(w, "panel", v)
}

func (r *Renderer) Page(w io.Writer, p Page) error {
	if p.Title == "" {
		p.Title = "FinHacker"
	}
	if p.Tabs == nil {
		p.Tabs = Tabs
	}
	if p.EventTypes == nil {
		p.EventTypes = events.Types
	}
	return r.t.ExecuteTemplate(w, "index", p)
}

// Social writes the aggregated social media overview page.
func (r *Renderer) Social(w io.Writer, o market.SocialOverview) error {
	return r.t.ExecuteTemplate(w, "social", o)
}

// DOMPrefix is the element id prefix for an asset in the pulse strip.
func DOMPrefix(a monitor.Asset) string {
	return strings.ToLower(a.Symbol)
}

func changeClass(change float64) string {
	if monitor.Direction(change) == monitor.Up {
		return "text-green-400"
	}
	return "text-red-400"
}

func caretClass(change float64) string {
	if monitor.Direction(change) == monitor.Up {
		return "fas fa-caret-up mr-1"
	}
	return "fas fa-caret-down mr-1"
}

func topicClass(sentiment string) string {
	switch strings.ToLower(sentiment) {
	case "positive":
		return "text-green-400"
	case "negative":
		return "text-red-400"
	}
	return "text-gray-500"
}

func partyClass(party string) string {
	if party == market.PartyDemocrat {
		return "party-d text-blue-600"
	}
	return "party-r text-red-600"
}

func actionClass(action string) string {
	if action == market.ActionBuy {
		return "action-buy text-green-400"
	}
	return "action-sell text-red-400"
}

// chartPoints scales one series of the chart into SVG polyline coordinates.
// All three series share the same y range so they line up.
func chartPoints(pts []market.ChartPoint, series string) string {
	if len(pts) == 0 {
		return ""
	}
	lo, hi := pts[0].Price, pts[0].Price
	for _, p := range pts {
		for _, v := range []float64{p.Price, p.MA50, p.MA200} {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	step := 0.0
	if len(pts) > 1 {
		step = float64(chartWidth) / float64(len(pts)-1)
	}

	var b strings.Builder
	for i, p := range pts {
		v := p.Price
		switch series {
		case "ma50":
			v = p.MA50
		case "ma200":
			v = p.MA200
		}
		y := float64(chartHeight) - (v-lo)/span*float64(chartHeight)
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", float64(i)*step, y)
	}
	return b.String()
}
