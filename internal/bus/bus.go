package bus

import (
	"context"
	"errors"
	"sync"

	"finhacker/internal/monitor"
)

var ErrClosed = errors.New("bus closed")

// Bus fans monitor snapshots out to subscribers.
type Bus interface {
	Publish(ctx context.Context, s monitor.Snapshot) error
	// Subscribe returns a channel that is closed when ctx is done or the bus
	// is closed. Slow subscribers miss snapshots rather than block publishers.
	Subscribe(ctx context.Context) (<-chan monitor.Snapshot, error)
	// Latest returns the most recently published snapshot, if any.
	Latest(ctx context.Context) (monitor.Snapshot, bool, error)
	Close() error
}

var (
	_ Bus = (*Memory)(nil)
	_ Bus = (*Redis)(nil)
)

const subscriberBuffer = 16

type Memory struct {
	mu     sync.Mutex
	subs   map[chan monitor.Snapshot]struct{}
	latest *monitor.Snapshot
	closed bool
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[chan monitor.Snapshot]struct{})}
}

func (b *Memory) Publish(_ context.Context, s monitor.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.latest = &s
	for ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
	return nil
}

func (b *Memory) Subscribe(ctx context.Context) (<-chan monitor.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	ch := make(chan monitor.Snapshot, subscriberBuffer)
	b.subs[ch] = struct{}{}

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}()
	return ch, nil
}

func (b *Memory) Latest(context.Context) (monitor.Snapshot, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest == nil {
		return monitor.Snapshot{}, false, nil
	}
	return *b.latest, true, nil
}

func (b *Memory) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Memory) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	return nil
}
