// Package report renders fit and scan results as text tables for the CLI.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gonum.org/v1/gonum/stat"

	"BubbleSentinel/internal/calculator"
	"BubbleSentinel/internal/lppls"
	"BubbleSentinel/internal/model"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func num(v float64, prec int) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

// FitTable writes one fit record as a parameter/value table.
func FitTable(w io.Writer, symbol string, rec model.FitRecord) {
	t := newTable(w, fmt.Sprintf("LPPLS fit %s", symbol))
	t.AppendHeader(table.Row{"Parameter", "Value"})
	t.AppendRows([]table.Row{
		{"t1", calculator.FormatOrdinal(rec.T1)},
		{"t2", calculator.FormatOrdinal(rec.T2)},
	})
	if rec.Fitted {
		t.AppendRows([]table.Row{
			{"tc", fmt.Sprintf("%s (%+.1f)", calculator.FormatOrdinal(rec.TC), rec.TC-rec.T2)},
			{"m", num(rec.M, 4)},
			{"w", num(rec.W, 4)},
			{"a", num(rec.A, 4)},
			{"b", num(rec.B, 4)},
			{"c", num(rec.C, 4)},
			{"c1", num(rec.C1, 4)},
			{"c2", num(rec.C2, 4)},
			{"oscillations", num(rec.O, 2)},
			{"damping", num(rec.D, 2)},
		})
	} else {
		t.AppendRow(table.Row{"status", "not found"})
	}
	t.AppendFooter(table.Row{"searches", rec.Searches})
	t.Render()
}

// ScanTable writes one row per outer window: its span, last close, how many
// sub-windows fitted and the spread of their critical times.
func ScanTable(w io.Writer, symbol string, res *model.ScanResult) {
	t := newTable(w, fmt.Sprintf("LPPLS scan %s", symbol))
	t.AppendHeader(table.Row{"#", "t1", "t2", "Close", "Fitted", "tc min", "tc median", "tc max"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, g := range res.Groups {
		row := table.Row{
			g.Index,
			calculator.FormatOrdinal(g.T1),
			calculator.FormatOrdinal(g.T2),
			num(math.Exp(g.P2), 2),
		}
		var tcs []float64
		for _, f := range g.Fits {
			if f.Fitted {
				tcs = append(tcs, f.TC)
			}
		}
		row = append(row, fmt.Sprintf("%d/%d", len(tcs), len(g.Fits)))
		if len(tcs) == 0 {
			row = append(row, "-", "-", "-")
		} else {
			sort.Float64s(tcs)
			row = append(row,
				calculator.FormatOrdinal(tcs[0]),
				calculator.FormatOrdinal(stat.Quantile(0.5, stat.Empirical, tcs, nil)),
				calculator.FormatOrdinal(tcs[len(tcs)-1]),
			)
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"", "", "", "total", fmt.Sprintf("%d/%d", res.FittedCount(), res.Total())})
	t.Render()
}

// SurfaceTable writes an objective cross-section as a grid with Param1
// across and Param2 down. The cell closest to the grid minimum is starred.
func SurfaceTable(w io.Writer, s *lppls.Surface) {
	t := newTable(w, fmt.Sprintf("SSR over %s x %s (%s = %.4g, optimum %.4g)",
		s.Param1, s.Param2, s.Fixed, s.FixedValue, s.Optimum))

	header := table.Row{s.Param2 + ` \ ` + s.Param1}
	for _, x := range s.X {
		header = append(header, num(x, 2))
	}
	t.AppendHeader(header)

	bi, bj := 0, 0
	for i := range s.Z {
		for j := range s.Z[i] {
			if s.Z[i][j] < s.Z[bi][bj] {
				bi, bj = i, j
			}
		}
	}
	for i, y := range s.Y {
		row := table.Row{num(y, 2)}
		for j, z := range s.Z[i] {
			cell := fmt.Sprintf("%.3g", z)
			if i == bi && j == bj {
				cell += "*"
			}
			row = append(row, cell)
		}
		t.AppendRow(row)
	}
	t.Render()
}
