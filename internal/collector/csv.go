package collector

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"BubbleSentinel/internal/model"
)

// CSVFetcher reads daily closes from a local CSV file with a header row.
// The date column is "date" or "time" (2006-01-02 or unix seconds); the
// price column is "adj close" if present, else "close" or "price".
type CSVFetcher struct {
	Path string
}

// NewCSVFetcher creates a fetcher for the file at path.
func NewCSVFetcher(path string) *CSVFetcher {
	return &CSVFetcher{Path: path}
}

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) FetchDailyBars(_ string, days int) ([]model.OHLCV, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	bars, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return lastN(bars, days), nil
}

func (f *CSVFetcher) FetchWeeklyBars(symbol string, weeks int) ([]model.OHLCV, error) {
	daily, err := f.FetchDailyBars(symbol, 0)
	if err != nil {
		return nil, err
	}
	return lastN(aggregateDailyToWeekly(daily), weeks), nil
}

// ParseCSV reads bars from r and returns them in chronological order.
func ParseCSV(r io.Reader) ([]model.OHLCV, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	dateCol, closeCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date", "time", "timestamp":
			dateCol = i
		case "adj close", "adj_close":
			closeCol = i
		case "close", "price":
			if closeCol < 0 {
				closeCol = i
			}
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("header %v needs a date and a close column", header)
	}

	var bars []model.OHLCV
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := parseDate(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if strings.TrimSpace(rec[closeCol]) == "" || rec[closeCol] == "null" {
			continue
		}
		c, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse close: %w", line, err)
		}
		bars = append(bars, model.OHLCV{Time: ts, Open: c, High: c, Low: c, Close: c})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no rows")
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
