package tape

import (
	"context"
	"time"

	"finhacker/internal/logging"
	"finhacker/internal/monitor"
)

// Inserter writes one batch of rows. *Client satisfies it.
type Inserter interface {
	InsertTicks(ctx context.Context, run Run, recs []Record) error
	InsertEvents(ctx context.Context, run Run, recs []Record) error
}

// Stats receives writer outcomes. The server's Metrics satisfies it.
type Stats interface {
	CHInserted(n int64, latency time.Duration)
	CHInsertError()
	CHDropped(n int64)
}

type nopStats struct{}

func (nopStats) CHInserted(int64, time.Duration) {}
func (nopStats) CHInsertError()                  {}
func (nopStats) CHDropped(int64)                 {}

type WriterConfig struct {
	BatchSize  int
	FlushEvery time.Duration
	BufferSize int
	MaxBackoff time.Duration
}

type Writer struct {
	cfg WriterConfig
	ins Inserter
	run Run
	log *logging.Logger
	m   Stats

	in chan Record
}

func NewWriter(cfg WriterConfig, ins Inserter, run Run, m Stats, log *logging.Logger) *Writer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10_000
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 1500 * time.Millisecond
	}
	if m == nil {
		m = nopStats{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Writer{
		cfg: cfg,
		ins: ins,
		run: run,
		log: log,
		m:   m,
		in:  make(chan Record, cfg.BufferSize),
	}
}

// TryEnqueue never blocks; a full buffer drops the record.
func (w *Writer) TryEnqueue(rec Record) bool {
	select {
	case w.in <- rec:
		return true
	default:
		w.m.CHDropped(1)
		return false
	}
}

// Sink records every monitor snapshot as tick rows.
func (w *Writer) Sink() monitor.Sink {
	return monitor.SinkFunc(func(_ context.Context, s monitor.Snapshot) error {
		for _, r := range TickRecords(s) {
			w.TryEnqueue(r)
		}
		return nil
	})
}

func (w *Writer) Run(ctx context.Context) {
	t := time.NewTicker(w.cfg.FlushEvery)
	defer t.Stop()

	batch := make([]Record, 0, w.cfg.BatchSize)

	take := func() []Record {
		tmp := batch
		batch = make([]Record, 0, w.cfg.BatchSize)
		return tmp
	}

	for {
		select {
		case <-ctx.Done():
			// drain best-effort then final flush
		Drain:
			for {
				select {
				case rec := <-w.in:
					batch = append(batch, rec)
					if len(batch) >= w.cfg.BatchSize {
						w.flush(context.Background(), take())
					}
				default:
					break Drain
				}
			}
			w.flush(context.Background(), batch)
			return

		case rec := <-w.in:
			batch = append(batch, rec)
			if len(batch) >= w.cfg.BatchSize {
				w.flush(ctx, take())
			}

		case <-t.C:
			if len(batch) > 0 {
				w.flush(ctx, take())
			}
		}
	}
}

// flush splits buf by kind and inserts each part with bounded retries.
func (w *Writer) flush(ctx context.Context, buf []Record) {
	if len(buf) == 0 {
		return
	}
	var ticks, evs []Record
	for _, r := range buf {
		if r.Kind == KindEvent {
			evs = append(evs, r)
		} else {
			ticks = append(ticks, r)
		}
	}
	w.insert(ctx, "tape_ticks", ticks, w.ins.InsertTicks)
	w.insert(ctx, "tape_events", evs, w.ins.InsertEvents)
}

func (w *Writer) insert(ctx context.Context, table string, buf []Record, fn func(context.Context, Run, []Record) error) {
	if len(buf) == 0 {
		return
	}
	const maxAttempts = 3

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			break
		}

		ctxIns, cancel := context.WithTimeout(ctx, 5*time.Second)
		start := time.Now()
		err := fn(ctxIns, w.run, buf)
		cancel()

		if err == nil {
			w.m.CHInserted(int64(len(buf)), time.Since(start))
			return
		}

		lastErr = err
		w.m.CHInsertError()

		if attempt == maxAttempts-1 {
			break
		}
		backoff := time.Duration(100*(1<<attempt)) * time.Millisecond
		if backoff > w.cfg.MaxBackoff {
			backoff = w.cfg.MaxBackoff
		}
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
	}

	w.m.CHDropped(int64(len(buf)))
	if lastErr != nil {
		w.log.Errorf("clickhouse insert into %s failed; dropped %d rows: %v", table, len(buf), lastErr)
	} else {
		w.log.Warnf("clickhouse insert into %s cancelled; dropped %d rows", table, len(buf))
	}
}
