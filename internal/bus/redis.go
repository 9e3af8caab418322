package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"finhacker/internal/logging"
	"finhacker/internal/monitor"
)

const (
	defaultChannel  = "finhacker.monitor"
	latestKeySuffix = ":latest"
)

// latestTicks is how many monitor intervals the latest key outlives its write.
const latestTicks = 3

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	// LatestTTL bounds how long a snapshot stays readable after the last
	// publish. Zero means three default monitor intervals.
	LatestTTL time.Duration
}

// Redis publishes snapshots on a pub/sub channel and keeps the last one under
// "<channel>:latest" so new instances can render before the next tick. The
// key expires once publishing stops, so readers fall back to their own
// monitor instead of serving frozen quotes.
type Redis struct {
	client  *redis.Client
	channel string
	ttl     time.Duration
	log     *logging.Logger
}

func NewRedis(ctx context.Context, cfg RedisConfig, log *logging.Logger) (*Redis, error) {
	if cfg.Channel == "" {
		cfg.Channel = defaultChannel
	}
	if cfg.LatestTTL <= 0 {
		cfg.LatestTTL = latestTicks * monitor.DefaultInterval
	}
	if log == nil {
		log = logging.Nop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	log.Infof("redis bus ready addr=%s channel=%s latest_ttl=%s", cfg.Addr, cfg.Channel, cfg.LatestTTL)
	return &Redis{client: client, channel: cfg.Channel, ttl: cfg.LatestTTL, log: log}, nil
}

func (r *Redis) Publish(ctx context.Context, s monitor.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.channel+latestKeySuffix, payload, r.ttl)
	pipe.Publish(ctx, r.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context) (<-chan monitor.Snapshot, error) {
	ps := r.client.Subscribe(ctx, r.channel)
	// Wait for the subscription confirmation so no publish is missed between
	// Subscribe returning and the first receive.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan monitor.Snapshot, subscriberBuffer)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var s monitor.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
					r.log.Warnf("redis bus: bad payload: %v", err)
					continue
				}
				select {
				case out <- s:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (r *Redis) Latest(ctx context.Context) (monitor.Snapshot, bool, error) {
	b, err := r.client.Get(ctx, r.channel+latestKeySuffix).Bytes()
	if errors.Is(err, redis.Nil) {
		return monitor.Snapshot{}, false, nil
	}
	if err != nil {
		return monitor.Snapshot{}, false, fmt.Errorf("redis get latest: %w", err)
	}
	var s monitor.Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return monitor.Snapshot{}, false, fmt.Errorf("decode latest: %w", err)
	}
	return s, true, nil
}

func (r *Redis) Close() error { return r.client.Close() }
