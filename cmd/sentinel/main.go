package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"BubbleSentinel/internal/collector"
	"BubbleSentinel/internal/config"
	"BubbleSentinel/internal/lppls"
	"BubbleSentinel/internal/model"
	"BubbleSentinel/internal/notifier"
	"BubbleSentinel/internal/recorder"
	"BubbleSentinel/internal/report"
	"BubbleSentinel/internal/scheduler"
)

const usage = `usage: sentinel [fit|scan|cross [p1 p2]|serve]

  fit    fit the most recent scan.window_size observations
  scan   run the nested window scan
  cross  fit, then tabulate the objective over two of tc, m, w (default tc m)
  serve  run scheduled scans and answer Telegram commands (default)

Configuration is read from CONFIG_PATH (default configs/config.yaml).`

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	os.Exit(run(os.Args[1:]))
}

// run executes one subcommand and returns the process exit code. Failures
// return instead of exiting so deferred cleanup closes the recorder and
// releases the signal context.
func run(args []string) int {
	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "fit", "scan", "cross", "serve":
	case "-h", "--help", "help":
		fmt.Println(usage)
		return 0
	default:
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Printf("[FATAL] load config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[FATAL] config validation: %v", err)
		return 1
	}

	fetcher := newFetcher(cfg)
	log.Printf("[INFO] data source: %s", fetcher.Name())
	col := collector.NewCollector(fetcher, cfg.DataSource.Symbol, model.Interval(cfg.DataSource.Interval), cfg.DataSource.Bars)

	minimizer, err := lppls.NewMinimizer(cfg.Fit.Minimizer, 0)
	if err != nil {
		log.Printf("[FATAL] init minimizer: %v", err)
		return 1
	}
	scanner := lppls.NewScanner(lppls.NewFitter(cfg.Fit.MaxSearches, minimizer))

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		n  notifier.Notifier = notifier.NewLogNotifier()
		tn *notifier.TelegramNotifier
	)
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = tn
	}

	sched := scheduler.NewScheduler(ctx, col, scanner, cfg.ScanParams(), minimizer.Method, n, rec)

	if err := runCommand(ctx, cmd, args[min(1, len(args)):], cfg, sched, tn); err != nil {
		log.Printf("[FATAL] %s failed: %v", cmd, err)
		return 1
	}
	return 0
}

func runCommand(ctx context.Context, cmd string, args []string, cfg *config.Config,
	sched *scheduler.Scheduler, tn *notifier.TelegramNotifier) error {
	switch cmd {
	case "fit":
		out, err := sched.Fit(ctx)
		if err != nil {
			return err
		}
		report.FitTable(os.Stdout, out.Series.Symbol, out.Record)
	case "scan":
		out, err := sched.Scan(ctx)
		if err != nil {
			return err
		}
		report.ScanTable(os.Stdout, out.Series.Symbol, out.Result)
	case "cross":
		p1, p2 := model.FieldTC, model.FieldM
		if len(args) > 1 {
			p1, p2 = args[0], args[1]
		}
		out, err := sched.Fit(ctx)
		if err != nil {
			return err
		}
		report.FitTable(os.Stdout, out.Series.Symbol, out.Record)
		surface, err := lppls.CrossSection(out.Window, out.Record, p1, p2, crossGridSize)
		if err != nil {
			return fmt.Errorf("cross-section: %w", err)
		}
		report.SurfaceTable(os.Stdout, surface)
	case "serve":
		return serve(ctx, cfg, sched, tn)
	}
	return nil
}

const crossGridSize = 12

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Source {
	case config.SourceVsTrader:
		return collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case config.SourceCSV:
		return collector.NewCSVFetcher(cfg.DataSource.CSVPath)
	case config.SourceMock:
		return &collector.MockFetcher{}
	default:
		return collector.NewYahooFetcher(cfg.Proxy)
	}
}

func serve(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler, tn *notifier.TelegramNotifier) error {
	log.Println("[INFO] BubbleSentinel starting...")
	if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	} else {
		log.Println("[WARN] Telegram not configured, reports go to the log")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing scan now")
		go sched.RunScanNow()
	}

	log.Println("[INFO] BubbleSentinel is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Println("[INFO] shutdown signal received, stopping...")
	return nil
}
