package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finhacker/internal/bus"
	"finhacker/internal/dashboard"
	"finhacker/internal/events"
	"finhacker/internal/logging"
	"finhacker/internal/market"
	"finhacker/internal/monitor"
	"finhacker/internal/tape"
)

type HTTPConfig struct {
	Addr string
	// BaseCtx is the parent of every request context; cancelling it ends
	// websocket streams that Shutdown does not track.
	BaseCtx context.Context
	Log     *logging.Logger

	Catalog  *market.Catalog
	Renderer *dashboard.Renderer
	Monitor  *monitor.Monitor
	Bus      bus.Bus

	// Tape and TapeW are nil when ClickHouse is off.
	Tape  *tape.Client
	TapeW *tape.Writer
	Run   tape.Run

	Policy    market.Policy
	Prefill   bool
	RefreshMS int64
	DismissMS int64

	M   *Metrics
	Now func() time.Time
}

type HTTPServer struct {
	cfg HTTPConfig
	srv *http.Server
}

func NewHTTPServer(cfg HTTPConfig) *http.Server {
	if cfg.Log == nil {
		cfg.Log = logging.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	hs := &HTTPServer{cfg: cfg}

	hs.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      hs.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	if cfg.BaseCtx != nil {
		hs.srv.BaseContext = func(net.Listener) context.Context { return cfg.BaseCtx }
	}
	return hs.srv
}

// routes uses method patterns, so a wrong method gets 405 from the mux.
func (hs *HTTPServer) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", hs.handleIndex)
	mux.HandleFunc("POST /analyze_ticker", hs.handleAnalyze)
	mux.HandleFunc("GET /market_data", hs.handleMarketData)
	mux.HandleFunc("POST /simulate_event", hs.handleSimulate)
	mux.HandleFunc("GET /social_media", hs.handleSocial)

	mux.HandleFunc("GET /api/stocks", hs.handleStocks)
	mux.HandleFunc("GET /api/analysis", hs.handleAnalysis)
	mux.HandleFunc("GET /api/tape", hs.handleTape)
	mux.HandleFunc("GET /ws/monitor", hs.handleMonitorWS)

	mux.HandleFunc("GET /health", hs.handleHealth)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(dashboard.Static())))

	return mux
}

// selection reads ticker and tab; empty values mean the defaults.
func (hs *HTTPServer) selection(ticker, tab string) (dashboard.Selection, error) {
	sel := dashboard.Selection{Stock: hs.cfg.Catalog.DefaultSymbol(), Tab: dashboard.Sentiment}
	if s := strings.ToUpper(strings.TrimSpace(ticker)); s != "" {
		sel.Stock = s
	}
	if strings.TrimSpace(tab) != "" {
		t, err := dashboard.ParseTab(tab)
		if err != nil {
			return sel, err
		}
		sel.Tab = t
	}
	return sel, nil
}

// latest prefers the bus so every instance behind a shared Redis shows the
// same quotes; before the first publish it falls back to the local monitor.
func (hs *HTTPServer) latest(ctx context.Context) monitor.Snapshot {
	if hs.cfg.Bus != nil {
		s, ok, err := hs.cfg.Bus.Latest(ctx)
		if err != nil {
			hs.cfg.Log.Warnf("bus latest failed: %v", err)
		} else if ok {
			return s
		}
	}
	return hs.cfg.Monitor.Snapshot()
}

func (hs *HTTPServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := hs.selection(q.Get("ticker"), q.Get("tab"))
	if err != nil {
		hs.cfg.M.IncBadRequest()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := hs.cfg.Now()
	page := dashboard.Page{
		View:      dashboard.Build(hs.cfg.Catalog, sel, hs.cfg.Policy),
		Pulse:     hs.latest(r.Context()).Assets,
		Posts:     market.PoliticianPosts(now),
		Insights:  market.AgentInsights(now),
		Prefill:   hs.cfg.Prefill,
		RefreshMS: hs.cfg.RefreshMS,
		DismissMS: hs.cfg.DismissMS,
	}

	var buf bytes.Buffer
	if err := hs.cfg.Renderer.Page(&buf, page); err != nil {
		hs.cfg.Log.Errorf("render index: %v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (hs *HTTPServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	hs.cfg.M.IncAnalyze()
	if err := r.ParseForm(); err != nil {
		hs.cfg.M.IncBadRequest()
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}
	sel, err := hs.selection(r.PostForm.Get("ticker"), r.PostForm.Get("tab_type"))
	if err != nil {
		hs.cfg.M.IncBadRequest()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view := dashboard.Build(hs.cfg.Catalog, sel, hs.cfg.Policy)
	var buf bytes.Buffer
	if err := hs.cfg.Renderer.Fragment(&buf, view); err != nil {
		hs.cfg.Log.Errorf("render fragment %s/%s: %v", sel.Stock, sel.Tab, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	hs.cfg.Log.Debugf("analyze ticker=%s tab=%s fallback=%v", sel.Stock, sel.Tab, view.Resolution.Fallback)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (hs *HTTPServer) handleMarketData(w http.ResponseWriter, r *http.Request) {
	hs.cfg.M.IncMarketRead()
	writeJSON(w, hs.latest(r.Context()).Pulse())
}

func (hs *HTTPServer) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		hs.cfg.M.IncBadRequest()
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}
	typ, err := events.ParseType(r.PostForm.Get("event_type"))
	if err != nil {
		hs.cfg.M.IncBadRequest()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := events.Simulate(typ)
	if err != nil {
		hs.cfg.M.IncBadRequest()
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	hs.cfg.M.IncEvent()
	if hs.cfg.TapeW != nil {
		hs.cfg.TapeW.TryEnqueue(tape.EventRecord(hs.cfg.Now(), typ, res))
	}
	writeJSON(w, res)
}

// handleSocial renders the social media overview. Any symbol is accepted,
// since chatter is not limited to the catalog; no ticker means the market.
func (hs *HTTPServer) handleSocial(w http.ResponseWriter, r *http.Request) {
	hs.cfg.M.IncSocialRead()
	o := market.SocialMediaOverview(r.URL.Query().Get("ticker"), hs.cfg.Now())

	var buf bytes.Buffer
	if err := hs.cfg.Renderer.Social(&buf, o); err != nil {
		hs.cfg.Log.Errorf("render social %q: %v", o.Ticker, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	hs.cfg.Log.Debugf("social overview scope=%s posts=%d", o.Scope(), o.Stats.Total)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (hs *HTTPServer) handleStocks(w http.ResponseWriter, r *http.Request) {
	stocks := hs.cfg.Catalog.Stocks()
	writeJSON(w, map[string]any{
		"default": hs.cfg.Catalog.DefaultSymbol(),
		"count":   len(stocks),
		"stocks":  stocks,
	})
}

func (hs *HTTPServer) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := hs.selection(q.Get("ticker"), q.Get("tab"))
	if err != nil {
		hs.cfg.M.IncBadRequest()
		writeJSONStatus(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	view := dashboard.Build(hs.cfg.Catalog, sel, hs.cfg.Policy)
	if view.Missing {
		writeJSONStatus(w, http.StatusNotFound, map[string]any{
			"error":      view.Notice,
			"resolution": view.Resolution,
		})
		return
	}
	writeJSON(w, map[string]any{
		"selection":  view.Selection,
		"resolution": view.Resolution,
		"notice":     view.Notice,
		"name":       view.Name,
		"analysis":   view.Analysis,
	})
}

func (hs *HTTPServer) handleTape(w http.ResponseWriter, r *http.Request) {
	if hs.cfg.Tape == nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]any{"error": "clickhouse not enabled"})
		return
	}
	q := r.URL.Query()
	kind := tape.KindTick
	if k := strings.ToLower(strings.TrimSpace(q.Get("kind"))); k != "" {
		kind = tape.Kind(k)
	}
	if kind != tape.KindTick && kind != tape.KindEvent {
		writeJSONStatus(w, http.StatusBadRequest, map[string]any{"error": "kind must be tick or event"})
		return
	}
	limit := 50
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeJSONStatus(w, http.StatusBadRequest, map[string]any{"error": "bad limit"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	rows, err := hs.cfg.Tape.Recent(ctx, hs.cfg.Run.ID, kind, limit)
	if err != nil {
		hs.cfg.Log.Errorf("tape query: %v", err)
		writeJSONStatus(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, map[string]any{
		"run_id": hs.cfg.Run.ID,
		"kind":   kind,
		"count":  len(rows),
		"rows":   rows,
	})
}

func (hs *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := hs.cfg.M.Snapshot()

	snap["run"] = map[string]any{
		"run_id":        hs.cfg.Run.ID,
		"run_start":     hs.cfg.Run.Start.Format(time.RFC3339Nano),
		"run_start_ms":  hs.cfg.Run.Start.UnixMilli(),
		"clickhouse_on": hs.cfg.Tape != nil,
	}

	if hs.cfg.Tape != nil {
		snap["clickhouse_conn"] = map[string]any{
			"enabled": true,
			"addr":    hs.cfg.Tape.Addr(),
			"db":      hs.cfg.Tape.Database(),
			"secure":  hs.cfg.Tape.Secure(),
		}
	} else {
		snap["clickhouse_conn"] = map[string]any{"enabled": false}
	}

	s := hs.cfg.Monitor.Snapshot()
	snap["monitor_state"] = map[string]any{
		"seq":         s.Seq,
		"interval_ms": hs.cfg.Monitor.Interval().Milliseconds(),
	}

	writeJSON(w, snap)
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

var errNoBus = errors.New("no quote bus configured")
