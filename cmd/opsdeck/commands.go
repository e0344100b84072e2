package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/config"
	"github.com/opsdeck/opsdeck/internal/fetch"
	"github.com/opsdeck/opsdeck/internal/gateway"
	"github.com/opsdeck/opsdeck/internal/guard"
	"github.com/opsdeck/opsdeck/internal/history"
	"github.com/opsdeck/opsdeck/internal/logging"
	"github.com/opsdeck/opsdeck/internal/metrics"
	"github.com/opsdeck/opsdeck/internal/notify"
	"github.com/opsdeck/opsdeck/internal/poll"
	"github.com/opsdeck/opsdeck/internal/refresh"
	"github.com/opsdeck/opsdeck/internal/state"
	"github.com/opsdeck/opsdeck/internal/tui/dashboard"
	"github.com/opsdeck/opsdeck/internal/visibility"
)

func runDashboard(cmd *cobra.Command, args []string) error {
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logging.Flush(2 * time.Second)
	if cfg.Logging.File == "" {
		// The TUI owns the terminal; drop stderr logging.
		logging.Suppress()
	}

	client, err := dial(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to backend: %w\n\nIs opsdeckd running? Socket: %s", err, cfg.Backend.Socket)
	}
	defer client.Close()

	stores := state.NewStores()
	ring := notify.NewFailureRing(64)
	sink := &dashboard.ProgramSink{}

	var meters *metrics.Metrics
	if cfg.Metrics.Enabled {
		meters = metrics.New()
		ln, err := meters.Serve(cfg.Metrics.Port)
		if err != nil {
			logging.Warn("metrics endpoint unavailable", "error", err)
		} else {
			defer ln.Close()
		}
	}

	var samples *history.Log
	if cfg.History.Database != "" {
		samples, err = history.Open(cfg.History.Database, cfg.History.MaxPerKind)
		if err != nil {
			logging.Warn("history log unavailable", "error", err)
			samples = nil
		} else {
			defer samples.Close()
		}
	}

	fetchers := fetch.New(fetch.Deps{
		API:         client,
		Guard:       guard.New(),
		Stores:      stores,
		Sink:        sink,
		Ring:        ring,
		Metrics:     meters,
		History:     samples,
		Logger:      logging.WithComponent("fetch"),
		SettleDelay: cfg.UI.SettleDelay,
	})
	actions := refresh.New(fetchers, cfg.UI.LogTailLines)

	table, err := poll.NewTable(cfg.Polling.Intervals)
	if err != nil {
		return fmt.Errorf("invalid polling config: %w", err)
	}

	gate := visibility.NewSignalGate()
	orch := poll.NewOrchestrator(table, actions, gate, logging.WithComponent("poll"))
	defer orch.Close()
	gate.OnRegained(orch.CatchUp)

	model := dashboard.New(dashboard.Deps{
		Cfg:      cfg,
		Stores:   stores,
		Actions:  actions,
		Orch:     orch,
		Fetchers: fetchers,
		Gate:     gate,
		Ring:     ring,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
	sink.Attach(p)

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func runStatus() error {
	client, err := dial(cfg)
	if err != nil {
		fmt.Println("Backend status: NOT RUNNING")
		fmt.Printf("Socket: %s\n", cfg.Backend.Socket)
		return nil
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.CallTimeout)
	defer cancel()

	fmt.Println("Backend status: RUNNING")
	fmt.Printf("Socket: %s\n", cfg.Backend.Socket)

	if o, err := client.Overview(ctx); err == nil {
		fmt.Printf("Services: %d/%d healthy\n", o.ServicesHealthy, o.ServicesTotal)
		fmt.Printf("Jobs: %d active, %d queued\n", o.ActiveJobs, o.QueuedJobs)
		fmt.Printf("Traffic: %.1f req/min, %.2f%% errors\n", o.RequestsPerMin, o.ErrorRate*100)
	}

	services, err := client.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}
	if len(services) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATUS\tPORT\tCPU\tMEM")
	for _, s := range services {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f%%\t%.0fMB\n", s.Name, s.Status, s.Port, s.CPUPercent, s.MemoryMB)
	}
	w.Flush()

	return nil
}

func dial(cfg *config.Config) (*gateway.Client, error) {
	secret, err := gateway.LoadSecret(cfg.Backend.SecretFile)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.DialRetry.MaxElapsed+5*time.Second)
	defer cancel()
	return gateway.Dial(ctx, gateway.Options{
		Socket:      cfg.Backend.Socket,
		Secret:      secret,
		CallTimeout: cfg.Backend.CallTimeout,
		DialInitial: cfg.Backend.DialRetry.Initial,
		DialMax:     cfg.Backend.DialRetry.Max,
		DialElapsed: cfg.Backend.DialRetry.MaxElapsed,
		Logger:      logging.WithComponent("gateway"),
	})
}

func initLogging(cfg *config.Config) error {
	return logging.Init(logging.Config{
		Level:     parseLevel(cfg.Logging.Level),
		SentryDSN: cfg.Logging.SentryDSN,
		Env:       "production",
		Version:   version,
		LogFile:   cfg.Logging.File,
	})
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
