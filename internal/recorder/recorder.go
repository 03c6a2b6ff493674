package recorder

import (
	"BubbleSentinel/internal/lppls"
	"BubbleSentinel/internal/model"
)

// FitEvent holds one single-window fit.
type FitEvent struct {
	Symbol    string
	Interval  string
	Minimizer string
	LastPrice float64 // last close of the fitted window
	Record    model.FitRecord
}

// ScanSnapshot holds a complete nested window scan.
type ScanSnapshot struct {
	Symbol    string
	Interval  string
	Minimizer string
	Params    lppls.ScanParams
	Result    *model.ScanResult
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordFit(evt *FitEvent) error
	RecordScan(snap *ScanSnapshot) error
	Close() error
}
