package bus_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"finhacker/internal/bus"
	"finhacker/internal/logging"
	"finhacker/internal/monitor"
)

func snap(seq int64) monitor.Snapshot {
	return monitor.Snapshot{
		Seq:    seq,
		At:     time.Unix(1700000000+seq, 0).UTC(),
		Assets: monitor.DefaultAssets(),
	}
}

func recv(t *testing.T, ch <-chan monitor.Snapshot) monitor.Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return monitor.Snapshot{}
}

func TestMemory_FanOut(t *testing.T) {
	b := bus.NewMemory()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, _ := b.Subscribe(ctx)
	c, _ := b.Subscribe(ctx)

	if _, ok, _ := b.Latest(ctx); ok {
		t.Error("Expected no latest before first publish")
	}

	if err := b.Publish(ctx, snap(1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := recv(t, a); got.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", got.Seq)
	}
	if got := recv(t, c); got.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", got.Seq)
	}

	latest, ok, err := b.Latest(ctx)
	if err != nil || !ok || latest.Seq != 1 {
		t.Errorf("Expected latest seq 1, got %d ok=%v err=%v", latest.Seq, ok, err)
	}
}

func TestMemory_UnsubscribeOnCancel(t *testing.T) {
	b := bus.NewMemory()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not torn down")
	}
	if n := b.Subscribers(); n != 0 {
		t.Errorf("Expected 0 subscribers, got %d", n)
	}
}

func TestMemory_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := bus.NewMemory()
	defer b.Close()
	ctx := context.Background()
	_, _ = b.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		for i := int64(0); i < 100; i++ {
			_ = b.Publish(ctx, snap(i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestMemory_Closed(t *testing.T) {
	b := bus.NewMemory()
	_ = b.Close()
	if err := b.Publish(context.Background(), snap(1)); err != bus.ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if _, err := b.Subscribe(context.Background()); err != bus.ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestRedis_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := bus.NewRedis(ctx, bus.RedisConfig{Addr: mr.Addr()}, logging.Nop())
	if err != nil {
		t.Fatalf("new redis bus: %v", err)
	}
	defer b.Close()

	if _, ok, err := b.Latest(ctx); err != nil || ok {
		t.Fatalf("Expected empty latest, got ok=%v err=%v", ok, err)
	}

	ch, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := b.Publish(ctx, snap(7)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := recv(t, ch)
	if got.Seq != 7 {
		t.Errorf("Expected seq 7, got %d", got.Seq)
	}
	btc, ok := got.Find("bitcoin")
	if !ok || btc.Price != 63458.75 {
		t.Errorf("Expected bitcoin 63458.75, got %+v", btc)
	}

	latest, ok, err := b.Latest(ctx)
	if err != nil || !ok || latest.Seq != 7 {
		t.Errorf("Expected latest seq 7, got %d ok=%v err=%v", latest.Seq, ok, err)
	}
	if !mr.Exists("finhacker.monitor:latest") {
		t.Error("Expected latest key in redis")
	}
}

func TestRedis_LatestExpiresWhenPublishingStops(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	b, err := bus.NewRedis(ctx, bus.RedisConfig{Addr: mr.Addr(), LatestTTL: 15 * time.Second}, logging.Nop())
	if err != nil {
		t.Fatalf("new redis bus: %v", err)
	}
	defer b.Close()

	if err := b.Publish(ctx, snap(1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ttl := mr.TTL("finhacker.monitor:latest"); ttl != 15*time.Second {
		t.Errorf("Expected ttl 15s, got %v", ttl)
	}

	// each publish pushes the expiry out again
	mr.FastForward(10 * time.Second)
	if err := b.Publish(ctx, snap(2)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	mr.FastForward(10 * time.Second)
	latest, ok, err := b.Latest(ctx)
	if err != nil || !ok || latest.Seq != 2 {
		t.Fatalf("Expected latest seq 2, got %d ok=%v err=%v", latest.Seq, ok, err)
	}

	mr.FastForward(10 * time.Second)
	if _, ok, err := b.Latest(ctx); err != nil || ok {
		t.Errorf("Expected the latest key to expire, got ok=%v err=%v", ok, err)
	}
}

func TestRedis_LatestTTLDefaultsToMonitorIntervals(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	b, err := bus.NewRedis(ctx, bus.RedisConfig{Addr: mr.Addr(), Channel: "quotes"}, nil)
	if err != nil {
		t.Fatalf("new redis bus: %v", err)
	}
	defer b.Close()

	if err := b.Publish(ctx, snap(1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if ttl := mr.TTL("quotes:latest"); ttl != 3*monitor.DefaultInterval {
		t.Errorf("Expected ttl %v, got %v", 3*monitor.DefaultInterval, ttl)
	}
}

func TestRedis_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := bus.NewRedis(ctx, bus.RedisConfig{Addr: addr}, nil); err == nil {
		t.Error("Expected ping error")
	}
}
