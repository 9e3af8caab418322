package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"finhacker/internal/dashboard"
	"finhacker/internal/logging"
	"finhacker/internal/market"
	"finhacker/internal/monitor"
	"finhacker/internal/tui"
)

func newRootCmd() *cobra.Command {
	v := newViper()
	var cfgFile string

	root := &cobra.Command{
		Use:          "finhacker",
		Short:        "FinHacker - mocked market intelligence dashboard",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	root.PersistentFlags().String("log-level", "info", "Log level: debug|info|warn|error")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	load := func() (*Config, *logging.Logger, error) {
		cfg, err := loadConfig(v, cfgFile)
		if err != nil {
			return nil, nil, err
		}
		return cfg, logging.New(cfg.Log.Level), nil
	}

	root.AddCommand(newServeCmd(v, load))
	root.AddCommand(newTUICmd(v, load))
	root.AddCommand(newWatchCmd(load))
	root.AddCommand(newShowCmd())
	root.AddCommand(newVersionCmd())
	return root
}

type loader func() (*Config, *logging.Logger, error)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(v *viper.Viper, load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		// flags are bound per command at run time; viper keeps one flag per key
		PreRun: func(cmd *cobra.Command, args []string) {
			f := cmd.Flags()
			_ = v.BindPFlag("http.port", f.Lookup("port"))
			_ = v.BindPFlag("dashboard.refresh_ms", f.Lookup("refresh-ms"))
			_ = v.BindPFlag("dashboard.dismiss_ms", f.Lookup("dismiss-ms"))
			_ = v.BindPFlag("dashboard.strict", f.Lookup("strict"))
			_ = v.BindPFlag("dashboard.prefill", f.Lookup("prefill"))
			_ = v.BindPFlag("redis.enabled", f.Lookup("redis"))
			_ = v.BindPFlag("clickhouse.enabled", f.Lookup("clickhouse"))
			bindMonitorFlags(v, f)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signalContext()
			defer stop()
			return runServe(ctx, cfg, log)
		},
	}

	f := cmd.Flags()
	f.Int("port", 8092, "HTTP port")
	f.Int("refresh-ms", 60000, "Page market refresh period in ms (0 disables)")
	f.Int("dismiss-ms", 10000, "Event card lifetime in ms")
	f.Bool("strict", false, "Show no data for unknown tickers instead of falling back")
	f.Bool("prefill", false, "Render the active panel into the index page")
	f.Bool("redis", false, "Publish quotes through Redis")
	f.Bool("clickhouse", false, "Record ticks and events to ClickHouse")
	addMonitorFlags(f)
	return cmd
}

func newTUICmd(v *viper.Viper, load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal dashboard",
		PreRun: func(cmd *cobra.Command, args []string) {
			bindMonitorFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			// the alt screen owns stdout
			log := logging.Nop()

			cat, err := market.Default()
			if err != nil {
				return err
			}
			mon, err := newMonitor(cfg.Monitor, nil, log)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			return tui.Run(ctx, cat, mon)
		},
	}
	addMonitorFlags(cmd.Flags())
	return cmd
}

func newShowCmd() *cobra.Command {
	var tab string
	var strict bool
	var width int

	cmd := &cobra.Command{
		Use:   "show [TICKER]",
		Short: "Print one analysis panel",
		Long: `Print one analysis panel to stdout.
Example: finhacker show MSFT --tab technical`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := market.Default()
			if err != nil {
				return err
			}
			t, err := dashboard.ParseTab(tab)
			if err != nil {
				return err
			}
			sel := dashboard.Selection{Stock: cat.DefaultSymbol(), Tab: t}
			if len(args) == 1 {
				sel.Stock = strings.ToUpper(strings.TrimSpace(args[0]))
			}
			policy := market.FallbackToDefault
			if strict {
				policy = market.Strict
			}
			view := dashboard.Build(cat, sel, policy)
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderTabs(t))
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderPanel(view, width))
			if view.Missing {
				return market.ErrUnknownTicker
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tab, "tab", string(dashboard.Sentiment), "Panel: sentiment|politicians|technical|fundamental")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on unknown tickers instead of falling back")
	cmd.Flags().IntVar(&width, "width", 100, "Output width")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "finhacker %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}

func addMonitorFlags(f *pflag.FlagSet) {
	f.Int("interval-ms", int(monitor.DefaultInterval.Milliseconds()), "Monitor tick period in ms")
	f.String("assets", "", "YAML asset list (default SPY, BTC, GOLD)")
	f.Int64("seed", 0, "Monitor random seed (0 = clock)")
}

func bindMonitorFlags(v *viper.Viper, f *pflag.FlagSet) {
	_ = v.BindPFlag("monitor.interval_ms", f.Lookup("interval-ms"))
	_ = v.BindPFlag("monitor.assets", f.Lookup("assets"))
	_ = v.BindPFlag("monitor.seed", f.Lookup("seed"))
}
