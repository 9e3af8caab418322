package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finhacker/internal/market"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newViper(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 8092 {
		t.Errorf("Expected port 8092, got %d", cfg.HTTP.Port)
	}
	if cfg.Monitor.IntervalMS != 5000 {
		t.Errorf("Expected 5000ms, got %d", cfg.Monitor.IntervalMS)
	}
	if cfg.Dashboard.RefreshMS != 60000 || cfg.Dashboard.DismissMS != 10000 {
		t.Errorf("unexpected dashboard settings: %+v", cfg.Dashboard)
	}
	if cfg.Redis.Enabled || cfg.ClickHouse.Enabled {
		t.Error("Expected redis and clickhouse off by default")
	}
	if cfg.Redis.Channel != "finhacker.monitor" {
		t.Errorf("Expected finhacker.monitor, got %s", cfg.Redis.Channel)
	}
}

func TestLoadConfig_EnvAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finhacker.yaml")
	yml := `
http:
  port: 9100
clickhouse:
  host: ch.internal
  batch_size: 50
dashboard:
  refresh_ms: 0
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLICKHOUSE_HOST", "ch.env")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := loadConfig(newViper(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 9100 {
		t.Errorf("Expected 9100 from file, got %d", cfg.HTTP.Port)
	}
	if cfg.ClickHouse.Host != "ch.env" {
		t.Errorf("Expected env to win, got %s", cfg.ClickHouse.Host)
	}
	if cfg.ClickHouse.BatchSize != 50 {
		t.Errorf("Expected 50, got %d", cfg.ClickHouse.BatchSize)
	}
	if cfg.Dashboard.RefreshMS != 0 {
		t.Errorf("Expected refresh disabled, got %d", cfg.Dashboard.RefreshMS)
	}
	if !cfg.Redis.Enabled {
		t.Error("Expected redis enabled from env")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		key, val string
	}{
		{"HTTP_PORT", "0"},
		{"MONITOR_INTERVAL_MS", "0"},
		{"DASHBOARD_REFRESH_MS", "-1"},
		{"DASHBOARD_DISMISS_MS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := loadConfig(newViper(), ""); err == nil {
				t.Errorf("Expected an error for %s=%s", tt.key, tt.val)
			}
		})
	}

	if _, err := loadConfig(newViper(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "finhacker dev") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestShowCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
		err  error
	}{
		{name: "technical", args: []string{"show", "msft", "--tab", "technical"}, want: "RSI (14):   67"},
		{name: "default", args: []string{"show"}, want: "AAPL"},
		{name: "fallback", args: []string{"show", "NVDA"}, want: "No data for NVDA; showing AAPL."},
		{name: "strict", args: []string{"show", "NVDA", "--strict"}, want: "No data for NVDA.", err: market.ErrUnknownTicker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("Expected %v, got %v", tt.err, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("Expected output to contain %q", tt.want)
			}
		})
	}

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"show", "AAPL", "--tab", "options"})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected an error for an unknown tab")
	}
}
