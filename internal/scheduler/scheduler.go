package scheduler

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"BubbleSentinel/internal/collector"
	"BubbleSentinel/internal/lppls"
	"BubbleSentinel/internal/model"
	"BubbleSentinel/internal/notifier"
	"BubbleSentinel/internal/recorder"

	"github.com/robfig/cron/v3"
)

// FitOutcome is the result of one collect-and-fit run.
type FitOutcome struct {
	Series    *model.PriceSeries
	Window    model.Series // the fitted observations
	Record    model.FitRecord
	LastPrice float64
}

// ScanOutcome is the result of one collect-and-scan run.
type ScanOutcome struct {
	Series *model.PriceSeries
	Result *model.ScanResult
}

// Scheduler runs fits and scans on demand or on a cron schedule, records
// them and pushes reports to the notifier.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Scanner   *lppls.Scanner
	Params    lppls.ScanParams
	Minimizer string
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Ctx       context.Context

	mu         sync.Mutex
	lastScan   *model.ScanResult
	lastScanAt time.Time
}

// NewScheduler creates a new Scheduler. Overlapping cron runs are skipped.
func NewScheduler(ctx context.Context, col *collector.Collector, sc *lppls.Scanner, params lppls.ScanParams,
	minimizer string, n notifier.Notifier, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		Collector: col,
		Scanner:   sc,
		Params:    params,
		Minimizer: minimizer,
		Notifier:  n,
		Recorder:  rec,
		Ctx:       ctx,
	}
}

// Register adds the periodic scan task.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunScanNow executes the scan task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunScanNow() {
	s.scanTask()
}

// Fit collects data, fits the most recent Params.WindowSize observations
// and records the fit.
func (s *Scheduler) Fit(ctx context.Context) (*FitOutcome, error) {
	ps, err := s.Collector.Collect()
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	obs := ps.Observations
	if n := s.Params.WindowSize; n > 0 && len(obs) > n {
		obs = obs[len(obs)-n:]
	}

	rec, err := s.Scanner.Fitter.Fit(ctx, obs, s.rng())
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	out := &FitOutcome{Series: ps, Window: obs, Record: rec, LastPrice: math.Exp(obs.Last().P)}

	if err := s.Recorder.RecordFit(&recorder.FitEvent{
		Symbol:    ps.Symbol,
		Interval:  string(ps.Interval),
		Minimizer: s.Minimizer,
		LastPrice: out.LastPrice,
		Record:    rec,
	}); err != nil {
		log.Printf("[ERROR] record fit: %v", err)
	}
	return out, nil
}

// Scan collects data, runs the nested window scan and records it. The
// result becomes the one reported by /status.
func (s *Scheduler) Scan(ctx context.Context) (*ScanOutcome, error) {
	ps, err := s.Collector.Collect()
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	start := time.Now()
	res, err := s.Scanner.Scan(ctx, ps.Observations, s.Params)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	log.Printf("[INFO] scan %s: %d/%d fits over %d windows in %v",
		ps.Symbol, res.FittedCount(), res.Total(), len(res.Groups), time.Since(start).Round(time.Millisecond))

	s.mu.Lock()
	s.lastScan = res
	s.lastScanAt = time.Now()
	s.mu.Unlock()

	if err := s.Recorder.RecordScan(&recorder.ScanSnapshot{
		Symbol:    ps.Symbol,
		Interval:  string(ps.Interval),
		Minimizer: s.Minimizer,
		Params:    s.Params,
		Result:    res,
	}); err != nil {
		log.Printf("[ERROR] record scan: %v", err)
	}
	return &ScanOutcome{Series: ps, Result: res}, nil
}

// LastScan returns the most recent scan result and when it finished.
func (s *Scheduler) LastScan() (*model.ScanResult, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScan, s.lastScanAt
}

func (s *Scheduler) scanTask() {
	log.Println("[INFO] running scan task")
	out, err := s.Scan(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] scan task: %v", err)
		s.trySend(fmt.Sprintf("❌ Scan failed: %v", err))
		return
	}
	s.trySend(notifier.FormatScanReport(out.Series.Symbol, out.Result))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	var cmd string
	if fields := strings.Fields(command); len(fields) > 0 {
		// Telegram appends @botname to commands in group chats.
		cmd, _, _ = strings.Cut(fields[0], "@")
	}
	switch cmd {
	case "/scan":
		out, err := s.Scan(ctx)
		if err != nil {
			log.Printf("[ERROR] /scan: %v", err)
			return fmt.Sprintf("❌ Scan failed: %v", err)
		}
		return notifier.FormatScanReport(out.Series.Symbol, out.Result)
	case "/fit":
		out, err := s.Fit(ctx)
		if err != nil {
			log.Printf("[ERROR] /fit: %v", err)
			return fmt.Sprintf("❌ Fit failed: %v", err)
		}
		return notifier.FormatFitReport(out.Series.Symbol, out.Record, out.LastPrice)
	case "/status":
		res, at := s.LastScan()
		return notifier.FormatStatus(s.Collector.Symbol, at, res)
	default:
		return "Available commands:\n• /scan - run a nested window scan\n• /fit - fit the latest window\n• /status - last scan summary"
	}
}

// rng returns a source seeded from Params.Seed, or a random one when unset.
func (s *Scheduler) rng() *rand.Rand {
	if s.Params.Seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(s.Params.Seed, 0))
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.Notify(s.Ctx, text); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
