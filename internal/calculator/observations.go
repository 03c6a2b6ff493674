package calculator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"BubbleSentinel/internal/model"
)

// unixEpochOrdinal is the proleptic Gregorian ordinal of 1970-01-01, where
// 0001-01-01 is day 1.
const unixEpochOrdinal = 719163

// maxOrdinal is the ordinal of 9999-12-31.
const maxOrdinal = 3652059

// Ordinal returns the day ordinal of t's UTC calendar date.
func Ordinal(t time.Time) float64 {
	y, m, d := t.UTC().Date()
	days := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
	return float64(days + unixEpochOrdinal)
}

// OrdinalToTime converts a (possibly fractional) ordinal back to a UTC date.
// The fraction is truncated. ok is false outside years 1..9999.
func OrdinalToTime(ord float64) (t time.Time, ok bool) {
	if math.IsNaN(ord) || ord < 1 || ord >= maxOrdinal+1 {
		return time.Time{}, false
	}
	days := int64(ord) - unixEpochOrdinal
	return time.Unix(days*86400, 0).UTC(), true
}

// FormatOrdinal renders an ordinal as 2006-01-02, or NaT when out of range.
func FormatOrdinal(ord float64) string {
	t, ok := OrdinalToTime(ord)
	if !ok {
		return "NaT"
	}
	return t.Format("2006-01-02")
}

// Observations converts bars into (ordinal day, ln close) observations.
// Bars with non-positive closes are skipped; when several bars fall on the
// same day the last one wins. Bars must be in chronological order.
func Observations(bars []model.OHLCV) (model.Series, error) {
	if len(bars) == 0 {
		return nil, errors.New("no bars provided")
	}
	s := make(model.Series, 0, len(bars))
	for i, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) {
			continue
		}
		o := model.Observation{T: Ordinal(b.Time), P: math.Log(b.Close)}
		if n := len(s); n > 0 {
			switch last := s[n-1].T; {
			case o.T == last:
				s[n-1] = o
				continue
			case o.T < last:
				return nil, fmt.Errorf("bar %d at %s is out of order", i, b.Time.Format("2006-01-02"))
			}
		}
		s = append(s, o)
	}
	if len(s) == 0 {
		return nil, errors.New("no bars with a positive close")
	}
	return s, nil
}
