package monitor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"finhacker/internal/logging"
)

const DefaultInterval = 5000 * time.Millisecond

const (
	maxPriceDrift  = 0.001
	maxChangeDrift = 0.1
)

// Rand is the randomness source for ticks. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

func NewRand(seed int64) Rand { return rand.New(rand.NewSource(seed)) }

// Sink receives every snapshot produced by Run.
type Sink interface {
	Publish(ctx context.Context, s Snapshot) error
}

type SinkFunc func(ctx context.Context, s Snapshot) error

func (f SinkFunc) Publish(ctx context.Context, s Snapshot) error { return f(ctx, s) }

type Options struct {
	Interval time.Duration
	Sinks    []Sink
	Log      *logging.Logger
	Now      func() time.Time
}

type Monitor struct {
	mu     sync.Mutex
	assets []Asset
	rnd    Rand
	seq    int64

	interval time.Duration
	sinks    []Sink
	log      *logging.Logger
	now      func() time.Time
}

// New copies assets; the caller's slice is never mutated. A nil rnd is seeded
// from the clock.
func New(assets []Asset, rnd Rand, opts Options) *Monitor {
	if len(assets) == 0 {
		assets = DefaultAssets()
	}
	if rnd == nil {
		rnd = NewRand(time.Now().UnixNano())
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Log == nil {
		opts.Log = logging.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cp := make([]Asset, len(assets))
	copy(cp, assets)
	return &Monitor{
		assets:   cp,
		rnd:      rnd,
		interval: opts.Interval,
		sinks:    opts.Sinks,
		log:      opts.Log,
		now:      opts.Now,
	}
}

func (m *Monitor) Interval() time.Duration { return m.interval }

func (m *Monitor) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*m.rnd.Float64()
}

// Tick applies one round of drift to every asset: price scales by 1+δ with
// δ in [-0.001, 0.001] and change shifts by ε in [-0.1, 0.1]. Nothing is
// clamped, so change can wander arbitrarily far over a long run.
func (m *Monitor) Tick() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.assets {
		a := &m.assets[i]
		a.Price *= 1 + m.uniform(-maxPriceDrift, maxPriceDrift)
		a.Change += m.uniform(-maxChangeDrift, maxChangeDrift)
	}
	m.seq++
	return m.snapshotLocked()
}

func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Monitor) snapshotLocked() Snapshot {
	out := make([]Asset, len(m.assets))
	copy(out, m.assets)
	return Snapshot{Seq: m.seq, At: m.now(), Assets: out}
}

func (m *Monitor) Pulse() Pulse { return m.Snapshot().Pulse() }

// Run ticks every interval until ctx is done. Sink errors are logged and do
// not stop the loop.
func (m *Monitor) Run(ctx context.Context) {
	t := time.NewTicker(m.interval)
	defer t.Stop()

	m.log.Infof("monitor started assets=%d interval=%s", len(m.assets), m.interval)
	for {
		select {
		case <-ctx.Done():
			m.log.Infof("monitor stopped")
			return
		case <-t.C:
			snap := m.Tick()
			for _, s := range m.sinks {
				if err := s.Publish(ctx, snap); err != nil && ctx.Err() == nil {
					m.log.Warnf("monitor publish seq=%d: %v", snap.Seq, err)
				}
			}
		}
	}
}
