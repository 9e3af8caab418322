package tape

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"

	"finhacker/internal/logging"
)

type Config struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Pass         string
	DB           string
	Secure       bool
	AsyncInsert  bool
	BatchSize    int
	FlushEveryMS int
}

// Client owns the ClickHouse connections: the native conn for batch inserts
// and a database/sql handle for reads.
type Client struct {
	cfg  Config
	conn clickhouse.Conn
	db   *sql.DB
	log  *logging.Logger
}

func (c *Client) Addr() string { return fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port) }
func (c *Client) Database() string {
	if c == nil {
		return ""
	}
	return c.cfg.DB
}
func (c *Client) Secure() bool {
	if c == nil {
		return false
	}
	return c.cfg.Secure
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

var safeIdentRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func validateIdent(s string) error {
	if s == "" {
		return fmt.Errorf("empty identifier")
	}
	if !safeIdentRe.MatchString(s) {
		return fmt.Errorf("unsafe identifier %q (allowed: [a-zA-Z0-9_])", s)
	}
	return nil
}

// withDefaults fills the zero fields.
func (cfg Config) withDefaults() Config {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port <= 0 {
		cfg.Port = 9000
	}
	if cfg.User == "" {
		cfg.User = "default"
	}
	if cfg.DB == "" {
		cfg.DB = "finhacker"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.FlushEveryMS <= 0 {
		cfg.FlushEveryMS = 1000
	}
	return cfg
}

func (cfg Config) options(database string) *clickhouse.Options {
	opt := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: cfg.User,
			Password: cfg.Pass,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Settings:        clickhouse.Settings{},
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: 30 * time.Minute,
	}
	if cfg.Secure {
		opt.TLS = &tls.Config{}
	}
	if cfg.AsyncInsert {
		opt.Settings["async_insert"] = 1
		opt.Settings["wait_for_async_insert"] = 0
	} else {
		opt.Settings["async_insert"] = 0
	}
	return opt
}

// NewClient returns (nil, nil) when the tape is disabled.
func NewClient(ctx context.Context, cfg Config, log *logging.Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	cfg = cfg.withDefaults()
	if err := validateIdent(cfg.DB); err != nil {
		return nil, err
	}

	// The target database may not exist yet, so bootstrap through "default".
	connDefault, err := clickhouse.Open(cfg.options("default"))
	if err != nil {
		return nil, fmt.Errorf("clickhouse open(default): %w", err)
	}
	{
		ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := connDefault.Exec(ctxPing, "SELECT 1"); err != nil {
			_ = connDefault.Close()
			return nil, fmt.Errorf("clickhouse ping(default): %w", err)
		}
		ddlDB := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.DB)
		if err := connDefault.Exec(ctxPing, ddlDB); err != nil {
			_ = connDefault.Close()
			return nil, fmt.Errorf("create database: %w", err)
		}
	}
	_ = connDefault.Close()

	conn, err := clickhouse.Open(cfg.options(cfg.DB))
	if err != nil {
		return nil, fmt.Errorf("clickhouse open(%s): %w", cfg.DB, err)
	}
	{
		ctxDDL, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := ensureSchema(ctxDDL, conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	db := clickhouse.OpenDB(cfg.options(cfg.DB))
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	{
		ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			_ = db.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("clickhouse db.Ping: %w", err)
		}
	}

	log.Infof("clickhouse ready addr=%s:%d db=%s async_insert=%v", cfg.Host, cfg.Port, cfg.DB, cfg.AsyncInsert)
	return &Client{cfg: cfg, conn: conn, db: db, log: log}, nil
}

const (
	ddlTicks = `
CREATE TABLE IF NOT EXISTS tape_ticks
(
  run_id String,
  run_start DateTime64(3, 'UTC'),
  ts DateTime64(3, 'UTC'),
  seq Int64,
  symbol LowCardinality(String),
  price Float64,
  change Float64,
  direction LowCardinality(String)
)
ENGINE = MergeTree
PARTITION BY toDate(ts)
ORDER BY (symbol, ts, run_id)
`

	ddlEvents = `
CREATE TABLE IF NOT EXISTS tape_events
(
  run_id String,
  run_start DateTime64(3, 'UTC'),
  ts DateTime64(3, 'UTC'),
  event_type LowCardinality(String),
  event String,
  analysis String,
  impact String
)
ENGINE = MergeTree
PARTITION BY toDate(ts)
ORDER BY (event_type, ts, run_id)
`
)

func ensureSchema(ctx context.Context, conn clickhouse.Conn) error {
	for i, q := range []string{ddlTicks, ddlEvents} {
		if err := conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("clickhouse ddl step %d: %w", i+1, err)
		}
	}
	return nil
}

func (c *Client) InsertTicks(ctx context.Context, run Run, recs []Record) error {
	b, err := c.conn.PrepareBatch(ctx, `
INSERT INTO tape_ticks
(run_id, run_start, ts, seq, symbol, price, change, direction)
`)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if err := b.Append(run.ID, run.Start, r.At.UTC(), r.Seq, r.Symbol, r.Price, r.Change, r.Direction); err != nil {
			return err
		}
	}
	return b.Send()
}

func (c *Client) InsertEvents(ctx context.Context, run Run, recs []Record) error {
	b, err := c.conn.PrepareBatch(ctx, `
INSERT INTO tape_events
(run_id, run_start, ts, event_type, event, analysis, impact)
`)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if err := b.Append(run.ID, run.Start, r.At.UTC(), r.EventType, r.Event, r.Analysis, r.Impact); err != nil {
			return err
		}
	}
	return b.Send()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}

// Recent returns the newest rows of one kind for a run, newest first.
func (c *Client) Recent(ctx context.Context, runID string, kind Kind, limit int) ([]Record, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("clickhouse not configured")
	}
	limit = clampLimit(limit)

	switch kind {
	case KindTick:
		rows, err := c.db.QueryContext(ctx, `
SELECT ts, seq, symbol, price, change, direction
FROM tape_ticks
WHERE run_id = ?
ORDER BY ts DESC, symbol
LIMIT `+strconv.Itoa(limit), runID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := make([]Record, 0, limit)
		for rows.Next() {
			r := Record{Kind: KindTick}
			if err := rows.Scan(&r.At, &r.Seq, &r.Symbol, &r.Price, &r.Change, &r.Direction); err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, rows.Err()

	case KindEvent:
		rows, err := c.db.QueryContext(ctx, `
SELECT ts, event_type, event, analysis, impact
FROM tape_events
WHERE run_id = ?
ORDER BY ts DESC
LIMIT `+strconv.Itoa(limit), runID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := make([]Record, 0, limit)
		for rows.Next() {
			r := Record{Kind: KindEvent}
			if err := rows.Scan(&r.At, &r.EventType, &r.Event, &r.Analysis, &r.Impact); err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, rows.Err()
	}
	return nil, fmt.Errorf("unknown tape kind %q", kind)
}
