package collector

import (
	"fmt"
	"log"
	"math"
	"time"

	"BubbleSentinel/internal/calculator"
	"BubbleSentinel/internal/lppls"
	"BubbleSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Without fixed data it generates a bubble that peaks CriticalIn bars after
// the last bar.
type MockFetcher struct {
	DailyData  []model.OHLCV
	WeeklyData []model.OHLCV
	CriticalIn int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ string, days int) ([]model.OHLCV, error) {
	if m.DailyData != nil {
		return m.DailyData, nil
	}
	return generateBubbleBars(days, m.criticalIn(), 24*time.Hour), nil
}

func (m *MockFetcher) FetchWeeklyBars(_ string, weeks int) ([]model.OHLCV, error) {
	if m.WeeklyData != nil {
		return m.WeeklyData, nil
	}
	return generateBubbleBars(weeks, m.criticalIn(), 7*24*time.Hour), nil
}

func (m *MockFetcher) criticalIn() int {
	if m.CriticalIn > 0 {
		return m.CriticalIn
	}
	return 20
}

// generateBubbleBars samples an LPPLS log-price path with tc criticalIn bars
// past the last bar, ending today.
func generateBubbleBars(count, criticalIn int, step time.Duration) []model.OHLCV {
	nl := model.NonlinearParams{TC: float64(count - 1 + criticalIn), M: 0.5, W: 7}
	lin := model.LinearParams{A: math.Log(5000), B: -0.05, C1: 0.005, C2: 0.005}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := math.Exp(lppls.Predict(float64(i), nl, lin))
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector fetches bars and turns them into fit-ready observations.
type Collector struct {
	Fetcher  Fetcher
	Symbol   string
	Interval model.Interval
	Bars     int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string, interval model.Interval, bars int) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol, Interval: interval, Bars: bars}
}

// Collect fetches market data and converts closes to log-price observations.
func (c *Collector) Collect() (*model.PriceSeries, error) {
	var (
		bars []model.OHLCV
		err  error
	)
	switch c.Interval {
	case model.IntervalWeekly:
		bars, err = c.Fetcher.FetchWeeklyBars(c.Symbol, c.Bars)
	case model.IntervalDaily, "":
		bars, err = c.Fetcher.FetchDailyBars(c.Symbol, c.Bars)
	default:
		return nil, fmt.Errorf("unsupported interval %q", c.Interval)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s bars: %w", c.Interval, err)
	}

	obs, err := calculator.Observations(bars)
	if err != nil {
		return nil, fmt.Errorf("build observations: %w", err)
	}
	if skipped := len(bars) - len(obs); skipped > 0 {
		log.Printf("[WARN] %s: %d of %d bars dropped (non-positive or same-day close)", c.Symbol, skipped, len(bars))
	}

	return &model.PriceSeries{
		Symbol:       c.Symbol,
		Interval:     c.Interval,
		Bars:         bars,
		Observations: obs,
		FetchedAt:    time.Now(),
	}, nil
}
