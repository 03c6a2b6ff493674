package notifier

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"BubbleSentinel/internal/calculator"
	"BubbleSentinel/internal/model"
)

// FormatFitReport formats a single-window fit into a Telegram message.
// lastPrice is the last close of the window.
func FormatFitReport(symbol string, rec model.FitRecord, lastPrice float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📈 <b>LPPLS fit</b> | %s | %s\n\n", html.EscapeString(symbol), time.Now().Format("2006-01-02"))
	fmt.Fprintf(&b, "Window: %s → %s\n", calculator.FormatOrdinal(rec.T1), calculator.FormatOrdinal(rec.T2))
	if lastPrice > 0 {
		fmt.Fprintf(&b, "Last close: %.2f\n", lastPrice)
	}
	if !rec.Fitted {
		fmt.Fprintf(&b, "\n⚠️ No fit found after %d searches\n", rec.Searches)
		return b.String()
	}

	fmt.Fprintf(&b, "Critical time tc: %s (%+.0f days)\n", calculator.FormatOrdinal(rec.TC), rec.TC-rec.T2)
	fmt.Fprintf(&b, "m=%.3f  ω=%.3f\n", rec.M, rec.W)
	fmt.Fprintf(&b, "a=%.4f  b=%.4f  c=%.4f\n", rec.A, rec.B, rec.C)
	fmt.Fprintf(&b, "Oscillations: %.2f | Damping: %.2f\n", rec.O, rec.D)
	fmt.Fprintf(&b, "Searches: %d\n", rec.Searches)
	return b.String()
}

// FormatScanReport summarizes a nested window scan: totals plus the fits of
// the most recent outer window.
func FormatScanReport(symbol string, res *model.ScanResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🔭 <b>LPPLS scan</b> | %s | %s\n\n", html.EscapeString(symbol), time.Now().Format("2006-01-02"))
	fmt.Fprintf(&b, "Outer windows: %d | Fits: %d/%d\n", len(res.Groups), res.FittedCount(), res.Total())
	if len(res.Groups) == 0 {
		return b.String()
	}

	last := res.Groups[len(res.Groups)-1]
	fmt.Fprintf(&b, "\n<b>Latest window</b> %s → %s (close %.2f)\n",
		calculator.FormatOrdinal(last.T1), calculator.FormatOrdinal(last.T2), math.Exp(last.P2))

	var ahead []float64
	fitted := 0
	for _, f := range last.Fits {
		if !f.Fitted {
			continue
		}
		fitted++
		if f.TC > last.T2 {
			ahead = append(ahead, f.TC-last.T2)
		}
	}
	fmt.Fprintf(&b, "Fitted sub-windows: %d/%d\n", fitted, len(last.Fits))
	if len(ahead) > 0 {
		sort.Float64s(ahead)
		med := stat.Quantile(0.5, stat.Empirical, ahead, nil)
		fmt.Fprintf(&b, "tc ahead of window end: %d fits, median %+.0f days\n", len(ahead), med)
	}
	return b.String()
}

// FormatStatus reports the last scan time and outcome.
func FormatStatus(symbol string, lastRun time.Time, res *model.ScanResult) string {
	if res == nil {
		return fmt.Sprintf("ℹ️ %s: no scan has run yet", html.EscapeString(symbol))
	}
	return fmt.Sprintf("ℹ️ %s: last scan %s, %d/%d fits over %d windows",
		html.EscapeString(symbol), lastRun.Format("2006-01-02 15:04"), res.FittedCount(), res.Total(), len(res.Groups))
}
