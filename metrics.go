package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type Metrics struct {
	start time.Time

	version   string
	commit    string
	buildDate string

	ticks       atomic.Int64
	busErrors   atomic.Int64
	analyzeReqs atomic.Int64
	badRequests atomic.Int64
	eventsTotal atomic.Int64
	marketReads atomic.Int64
	socialReads atomic.Int64

	wsClients atomic.Int64
	wsTotal   atomic.Int64

	// ClickHouse tape metrics
	chInsertedRows        atomic.Int64
	chInsertErrors        atomic.Int64
	chDroppedDB           atomic.Int64
	chLastInsertLatencyMs atomic.Int64
	chLastInsertAtMs      atomic.Int64

	mu      sync.Mutex
	samples []rateSample // appended each second
}

type rateSample struct {
	at       time.Time
	requests int64
}

func NewMetrics(start time.Time, version, commit, buildDate string) *Metrics {
	return &Metrics{
		start:     start,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		samples:   make([]rateSample, 0, 16),
	}
}

func (m *Metrics) IncTick()       { m.ticks.Add(1) }
func (m *Metrics) IncBusError()   { m.busErrors.Add(1) }
func (m *Metrics) IncAnalyze()    { m.analyzeReqs.Add(1) }
func (m *Metrics) IncBadRequest() { m.badRequests.Add(1) }
func (m *Metrics) IncEvent()      { m.eventsTotal.Add(1) }
func (m *Metrics) IncMarketRead() { m.marketReads.Add(1) }
func (m *Metrics) IncSocialRead() { m.socialReads.Add(1) }

func (m *Metrics) WSConnected() {
	m.wsClients.Add(1)
	m.wsTotal.Add(1)
}
func (m *Metrics) WSDisconnected() { m.wsClients.Add(-1) }

func (m *Metrics) CHInserted(n int64, latency time.Duration) {
	m.chInsertedRows.Add(n)
	m.chLastInsertLatencyMs.Store(latency.Milliseconds())
	m.chLastInsertAtMs.Store(time.Now().UnixMilli())
}
func (m *Metrics) CHInsertError() { m.chInsertErrors.Add(1) }
func (m *Metrics) CHDropped(n int64) {
	m.chDroppedDB.Add(n)
}

func (m *Metrics) requests() int64 {
	return m.analyzeReqs.Load() + m.eventsTotal.Load() + m.marketReads.Load() + m.socialReads.Load()
}

func (m *Metrics) Run(ctx context.Context) {
	t := time.NewTicker(1 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			m.sample(now)
		}
	}
}

func (m *Metrics) sample(now time.Time) {
	n := m.requests()

	m.mu.Lock()
	m.samples = append(m.samples, rateSample{at: now, requests: n})
	// keep last ~30s
	if len(m.samples) > 40 {
		m.samples = m.samples[len(m.samples)-40:]
	}
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() map[string]any {
	uptime := time.Since(m.start)

	r1, r5 := m.requestRates()

	return map[string]any{
		"ok": true,

		"uptime_ms": uptime.Milliseconds(),
		"uptime":    uptime.String(),

		"build": map[string]any{
			"version":    m.version,
			"commit":     m.commit,
			"build_date": m.buildDate,
		},

		"monitor": map[string]any{
			"ticks_total":      m.ticks.Load(),
			"bus_errors_total": m.busErrors.Load(),
		},

		"http": map[string]any{
			"analyze_total":      m.analyzeReqs.Load(),
			"events_total":       m.eventsTotal.Load(),
			"market_reads_total": m.marketReads.Load(),
			"social_reads_total": m.socialReads.Load(),
			"bad_requests_total": m.badRequests.Load(),
			"requests_per_s": map[string]any{
				"1s": r1,
				"5s": r5,
			},
		},

		"ws": map[string]any{
			"clients":     m.wsClients.Load(),
			"connections": m.wsTotal.Load(),
		},

		"clickhouse": map[string]any{
			"inserted_rows_total":    m.chInsertedRows.Load(),
			"insert_errors_total":    m.chInsertErrors.Load(),
			"dropped_db_total":       m.chDroppedDB.Load(),
			"last_insert_latency_ms": m.chLastInsertLatencyMs.Load(),
			"last_insert_at_unix_ms": m.chLastInsertAtMs.Load(),
		},
	}
}

func (m *Metrics) requestRates() (rate1 float64, rate5 float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.samples) < 2 {
		return 0, 0
	}
	latest := m.samples[len(m.samples)-1]

	// 1s rate: compare with prior sample
	prev := m.samples[len(m.samples)-2]
	dt := latest.at.Sub(prev.at).Seconds()
	if dt > 0 {
		rate1 = float64(latest.requests-prev.requests) / dt
	}

	// 5s rate: find sample >= 5s ago
	var older *rateSample
	for i := len(m.samples) - 1; i >= 0; i-- {
		if latest.at.Sub(m.samples[i].at) >= 5*time.Second {
			older = &m.samples[i]
			break
		}
	}
	if older != nil {
		dt5 := latest.at.Sub(older.at).Seconds()
		if dt5 > 0 {
			rate5 = float64(latest.requests-older.requests) / dt5
		}
	}
	return
}
