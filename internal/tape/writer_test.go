package tape_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"finhacker/internal/events"
	"finhacker/internal/monitor"
	"finhacker/internal/tape"
)

type fakeInserter struct {
	mu     sync.Mutex
	ticks  []tape.Record
	evs    []tape.Record
	runs   []string
	failN  atomic.Int32
	calls  atomic.Int32
	always bool
}

var errInsert = errors.New("insert failed")

func (f *fakeInserter) fail() bool {
	f.calls.Add(1)
	if f.always {
		return true
	}
	return f.failN.Add(-1) >= 0
}

func (f *fakeInserter) InsertTicks(_ context.Context, run tape.Run, recs []tape.Record) error {
	if f.fail() {
		return errInsert
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, recs...)
	f.runs = append(f.runs, run.ID)
	return nil
}

func (f *fakeInserter) InsertEvents(_ context.Context, run tape.Run, recs []tape.Record) error {
	if f.fail() {
		return errInsert
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evs = append(f.evs, recs...)
	f.runs = append(f.runs, run.ID)
	return nil
}

func (f *fakeInserter) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ticks), len(f.evs)
}

type stats struct {
	inserted atomic.Int64
	errs     atomic.Int64
	dropped  atomic.Int64
}

func (s *stats) CHInserted(n int64, _ time.Duration) { s.inserted.Add(n) }
func (s *stats) CHInsertError()                      { s.errs.Add(1) }
func (s *stats) CHDropped(n int64)                   { s.dropped.Add(n) }

func snapshot() monitor.Snapshot {
	assets := monitor.DefaultAssets()
	return monitor.Snapshot{Seq: 7, At: time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC), Assets: assets}
}

func runWriter(t *testing.T, w *tape.Writer) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	return cancel, done
}

func TestTickRecords(t *testing.T) {
	recs := tape.TickRecords(snapshot())
	if len(recs) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(recs))
	}
	if recs[1].Symbol != "BTC" || recs[1].Direction != monitor.Down || recs[1].Seq != 7 {
		t.Errorf("unexpected bitcoin row: %+v", recs[1])
	}
	if recs[0].Kind != tape.KindTick {
		t.Errorf("Expected tick kind, got %s", recs[0].Kind)
	}
}

func TestWriter_FlushesOnBatchSizeSplitByKind(t *testing.T) {
	ins := &fakeInserter{}
	st := &stats{}
	run := tape.NewRun(time.Now())
	w := tape.NewWriter(tape.WriterConfig{BatchSize: 4, FlushEvery: time.Hour}, ins, run, st, nil)
	cancel, done := runWriter(t, w)
	defer func() { cancel(); <-done }()

	for _, r := range tape.TickRecords(snapshot()) {
		w.TryEnqueue(r)
	}
	res, _ := events.Simulate(events.MarketMove)
	w.TryEnqueue(tape.EventRecord(time.Now(), events.MarketMove, res))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, e := ins.counts(); n == 3 && e == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	ticks, evs := ins.counts()
	if ticks != 3 || evs != 1 {
		t.Fatalf("Expected 3 ticks and 1 event, got %d and %d", ticks, evs)
	}
	if st.inserted.Load() != 4 {
		t.Errorf("Expected 4 inserted rows, got %d", st.inserted.Load())
	}
	ins.mu.Lock()
	defer ins.mu.Unlock()
	for _, id := range ins.runs {
		if id != run.ID {
			t.Errorf("Expected run id %s, got %s", run.ID, id)
		}
	}
	if ins.evs[0].EventType != "market_move" || ins.evs[0].Impact == "" {
		t.Errorf("unexpected event row: %+v", ins.evs[0])
	}
}

func TestWriter_DrainsOnCancel(t *testing.T) {
	ins := &fakeInserter{}
	w := tape.NewWriter(tape.WriterConfig{BatchSize: 100, FlushEvery: time.Hour}, ins, tape.NewRun(time.Now()), nil, nil)
	cancel, done := runWriter(t, w)

	for _, r := range tape.TickRecords(snapshot()) {
		w.TryEnqueue(r)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if ticks, _ := ins.counts(); ticks != 3 {
		t.Errorf("Expected 3 drained ticks, got %d", ticks)
	}
}

func TestWriter_RetriesThenSucceeds(t *testing.T) {
	ins := &fakeInserter{}
	ins.failN.Store(2)
	st := &stats{}
	w := tape.NewWriter(tape.WriterConfig{BatchSize: 3, FlushEvery: time.Hour, MaxBackoff: 10 * time.Millisecond}, ins, tape.NewRun(time.Now()), st, nil)
	cancel, done := runWriter(t, w)
	defer func() { cancel(); <-done }()

	for _, r := range tape.TickRecords(snapshot()) {
		w.TryEnqueue(r)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && st.inserted.Load() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if st.inserted.Load() != 3 {
		t.Fatalf("Expected 3 inserted rows, got %d", st.inserted.Load())
	}
	if st.errs.Load() != 2 {
		t.Errorf("Expected 2 insert errors, got %d", st.errs.Load())
	}
	if st.dropped.Load() != 0 {
		t.Errorf("Expected no drops, got %d", st.dropped.Load())
	}
}

func TestWriter_DropsAfterMaxAttempts(t *testing.T) {
	ins := &fakeInserter{always: true}
	st := &stats{}
	w := tape.NewWriter(tape.WriterConfig{BatchSize: 3, FlushEvery: time.Hour, MaxBackoff: 5 * time.Millisecond}, ins, tape.NewRun(time.Now()), st, nil)
	cancel, done := runWriter(t, w)
	defer func() { cancel(); <-done }()

	for _, r := range tape.TickRecords(snapshot()) {
		w.TryEnqueue(r)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && st.dropped.Load() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if st.dropped.Load() != 3 {
		t.Fatalf("Expected 3 dropped rows, got %d", st.dropped.Load())
	}
	if got := ins.calls.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestWriter_TryEnqueueFullBuffer(t *testing.T) {
	st := &stats{}
	w := tape.NewWriter(tape.WriterConfig{BufferSize: 1}, &fakeInserter{}, tape.NewRun(time.Now()), st, nil)

	if !w.TryEnqueue(tape.Record{Kind: tape.KindTick}) {
		t.Fatal("first enqueue should fit")
	}
	if w.TryEnqueue(tape.Record{Kind: tape.KindTick}) {
		t.Error("Expected full buffer to reject")
	}
	if st.dropped.Load() != 1 {
		t.Errorf("Expected 1 drop, got %d", st.dropped.Load())
	}
}

func TestWriter_MonitorSink(t *testing.T) {
	ins := &fakeInserter{}
	w := tape.NewWriter(tape.WriterConfig{BatchSize: 3, FlushEvery: time.Hour}, ins, tape.NewRun(time.Now()), nil, nil)
	cancel, done := runWriter(t, w)
	defer func() { cancel(); <-done }()

	m := monitor.New(nil, monitor.NewRand(1), monitor.Options{})
	if err := w.Sink().Publish(context.Background(), m.Tick()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := ins.counts(); n == 3 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Expected one tick row per asset")
}

func TestNewClient_Disabled(t *testing.T) {
	c, err := tape.NewClient(context.Background(), tape.Config{}, nil)
	if err != nil || c != nil {
		t.Errorf("Expected nil client and nil error, got %v %v", c, err)
	}
	if _, err := c.Recent(context.Background(), "run", tape.KindTick, 10); err == nil {
		t.Error("Expected error from nil client")
	}
}
