package model

import "time"

// Interval selects the bar granularity fetched from a data source.
type Interval string

const (
	IntervalDaily  Interval = "1d"
	IntervalWeekly Interval = "1wk"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds raw bars together with the observations derived from them.
type PriceSeries struct {
	Symbol       string
	Interval     Interval
	Bars         []OHLCV
	Observations Series
	FetchedAt    time.Time
}
