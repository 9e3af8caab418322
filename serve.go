package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"finhacker/internal/bus"
	"finhacker/internal/dashboard"
	"finhacker/internal/logging"
	"finhacker/internal/market"
	"finhacker/internal/monitor"
	"finhacker/internal/tape"
)

// newMonitor builds the quote monitor from settings. Sinks are attached by
// the caller.
func newMonitor(s MonitorSettings, sinks []monitor.Sink, log *logging.Logger) (*monitor.Monitor, error) {
	var assets []monitor.Asset
	if s.Assets != "" {
		a, err := monitor.LoadAssets(s.Assets)
		if err != nil {
			return nil, fmt.Errorf("load assets: %w", err)
		}
		log.Infof("loaded assets=%d (%s)", len(a), filepath.Base(s.Assets))
		assets = a
	}
	var rnd monitor.Rand
	if s.Seed != 0 {
		rnd = monitor.NewRand(s.Seed)
	}
	return monitor.New(assets, rnd, monitor.Options{
		Interval: time.Duration(s.IntervalMS) * time.Millisecond,
		Sinks:    sinks,
		Log:      log.Named("monitor"),
	}), nil
}

// newBus keeps the shared latest snapshot for a few monitor intervals.
func newBus(ctx context.Context, s RedisSettings, intervalMS int, log *logging.Logger) (bus.Bus, error) {
	if !s.Enabled {
		log.Infof("quote bus: in-memory")
		return bus.NewMemory(), nil
	}
	ctxInit, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	r, err := bus.NewRedis(ctxInit, bus.RedisConfig{
		Addr:     s.Addr,
		Password: s.Password,
		DB:       s.DB,
		Channel:  s.Channel,
		// zero falls back to the bus default
		LatestTTL: 3 * time.Duration(intervalMS) * time.Millisecond,
	}, log.Named("bus"))
	if err != nil {
		return nil, err
	}
	log.Infof("quote bus: redis addr=%s channel=%s", s.Addr, s.Channel)
	return r, nil
}

func runServe(ctx context.Context, cfg *Config, log *logging.Logger) error {
	now := time.Now()
	run := tape.NewRun(now)
	metrics := NewMetrics(now, version, commit, buildDate)

	cat, err := market.Default()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	log.Infof("catalog ready tickers=%d default=%s", len(cat.Symbols()), cat.DefaultSymbol())

	renderer, err := dashboard.NewRenderer()
	if err != nil {
		return err
	}

	qb, err := newBus(ctx, cfg.Redis, cfg.Monitor.IntervalMS, log)
	if err != nil {
		return fmt.Errorf("quote bus: %w", err)
	}
	defer qb.Close()

	// ClickHouse init (schema + connections)
	var chClient *tape.Client
	var chw *tape.Writer
	if cfg.ClickHouse.Enabled {
		ch := cfg.ClickHouse
		ctxInit, cancel := context.WithTimeout(ctx, 20*time.Second)
		chClient, err = tape.NewClient(ctxInit, tape.Config{
			Enabled:      true,
			Host:         ch.Host,
			Port:         ch.Port,
			User:         ch.User,
			Pass:         ch.Pass,
			DB:           ch.DB,
			Secure:       ch.Secure,
			AsyncInsert:  ch.AsyncInsert,
			BatchSize:    ch.BatchSize,
			FlushEveryMS: ch.FlushMS,
		}, log.Named("clickhouse"))
		cancel()

		if err != nil {
			log.Errorf("clickhouse init failed (continuing without CH): %v", err)
			chClient = nil
		} else {
			chw = tape.NewWriter(tape.WriterConfig{
				BatchSize:  ch.BatchSize,
				FlushEvery: time.Duration(ch.FlushMS) * time.Millisecond,
			}, chClient, run, metrics, log.Named("clickhouse"))
		}
	} else {
		log.Infof("clickhouse disabled")
	}

	sinks := []monitor.Sink{
		monitor.SinkFunc(func(ctx context.Context, s monitor.Snapshot) error {
			metrics.IncTick()
			if err := qb.Publish(ctx, s); err != nil {
				metrics.IncBusError()
				return err
			}
			return nil
		}),
	}
	if chw != nil {
		sinks = append(sinks, chw.Sink())
	}
	mon, err := newMonitor(cfg.Monitor, sinks, log)
	if err != nil {
		return err
	}

	policy := market.FallbackToDefault
	if cfg.Dashboard.Strict {
		policy = market.Strict
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	httpSrv := NewHTTPServer(HTTPConfig{
		Addr:      fmt.Sprintf(":%d", cfg.HTTP.Port),
		BaseCtx:   ctx,
		Log:       log.Named("http"),
		Catalog:   cat,
		Renderer:  renderer,
		Monitor:   mon,
		Bus:       qb,
		Tape:      chClient,
		TapeW:     chw,
		Run:       run,
		Policy:    policy,
		Prefill:   cfg.Dashboard.Prefill,
		RefreshMS: int64(cfg.Dashboard.RefreshMS),
		DismissMS: int64(cfg.Dashboard.DismissMS),
		M:         metrics,
	})

	// start background components
	go metrics.Run(ctx)
	tapeDone := make(chan struct{})
	if chw != nil {
		go func() {
			chw.Run(ctx)
			close(tapeDone)
		}()
	} else {
		close(tapeDone)
	}
	go mon.Run(ctx)

	// run HTTP server
	go func() {
		log.Infof("http listening on http://localhost:%d", cfg.HTTP.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	// graceful shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Infof("shutting down...")
	_ = httpSrv.Shutdown(shCtx)
	select {
	case <-tapeDone:
	case <-shCtx.Done():
		log.Warnf("clickhouse drain timed out")
	}
	chClient.Close()
	log.Infof("bye")
	return nil
}
