package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"finhacker/internal/legacy"
	"finhacker/internal/logging"
)

var (
	watchUp   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	watchDown = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	watchDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func newWatchCmd(load loader) *cobra.Command {
	var (
		url       string
		refreshMS int
		simulate  bool
		ticker    string
		tab       string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Drive a running server the way the page script does",
		Long: `Open the index page of a running server, load the analysis panel,
and keep the market strip fresh by polling /market_data.
Example: finhacker watch --url http://localhost:8092 --refresh-ms 5000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signalContext()
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), log, watchOptions{
				URL:      url,
				Refresh:  time.Duration(refreshMS) * time.Millisecond,
				Simulate: simulate,
				Ticker:   ticker,
				Tab:      tab,
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8092", "Server base URL")
	cmd.Flags().IntVar(&refreshMS, "refresh-ms", int(legacy.DefaultRefreshInterval.Milliseconds()), "Market poll period in ms (0 disables)")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Simulate one random market event after loading")
	cmd.Flags().StringVar(&ticker, "ticker", "", "Select this ticker before loading")
	cmd.Flags().StringVar(&tab, "tab", "", "Select this tab before loading")
	return cmd
}

type watchOptions struct {
	URL      string
	Refresh  time.Duration
	Simulate bool
	Ticker   string
	Tab      string
}

func runWatch(ctx context.Context, out io.Writer, log *logging.Logger, o watchOptions) error {
	var ctl *legacy.Controller
	ctl, err := legacy.Open(ctx, legacy.Config{
		BaseURL:         o.URL,
		RefreshInterval: o.Refresh,
		Log:             log.Named("watch"),
		OnRefresh:       func() { printQuotes(out, ctl.Quotes()) },
	})
	if err != nil {
		return err
	}
	defer ctl.Unmount()

	if o.Tab != "" {
		if err := ctl.SelectTab(o.Tab); err != nil {
			return err
		}
	}
	if o.Ticker != "" {
		ctl.SelectTicker(o.Ticker)
	}

	printQuotes(out, ctl.Quotes())
	if err := ctl.Submit(ctx); err != nil {
		fmt.Fprintln(out, watchDown.Render("analysis: "+err.Error()))
	} else {
		fmt.Fprintln(out, watchDim.Render(fmt.Sprintf("analysis loaded (%d bytes, state %s)", len(ctl.ContentHTML()), ctl.State())))
	}

	if o.Simulate {
		res, err := ctl.SimulateEvent(ctx)
		if err != nil {
			fmt.Fprintln(out, watchDown.Render("event: "+err.Error()))
		} else {
			fmt.Fprintf(out, "%s\n  %s\n  Impact: %s\n", res.Event, res.Analysis, res.Impact)
		}
	}

	ctl.Mount(ctx)
	<-ctx.Done()
	return nil
}

func printQuotes(out io.Writer, quotes []legacy.Quote) {
	parts := make([]string, 0, len(quotes))
	for _, q := range quotes {
		style := watchDown
		if q.Up {
			style = watchUp
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", strings.ToUpper(q.Key), q.Price, style.Render(strings.TrimSpace(q.Change))))
	}
	fmt.Fprintf(out, "%s  %s\n", watchDim.Render(time.Now().Format("15:04:05")), strings.Join(parts, "  "))
}
