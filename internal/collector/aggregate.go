package collector

import "BubbleSentinel/internal/model"

// aggregateDailyToWeekly converts daily bars into weekly bars (ISO weeks).
func aggregateDailyToWeekly(daily []model.OHLCV) []model.OHLCV {
	if len(daily) == 0 {
		return nil
	}
	var weekly []model.OHLCV
	var week model.OHLCV
	var weekStarted bool

	for _, d := range daily {
		year, isoWeek := d.Time.ISOWeek()
		weekKey := year*100 + isoWeek

		if !weekStarted {
			week = d
			weekStarted = true
			continue
		}

		cy, cw := week.Time.ISOWeek()
		if weekKey != cy*100+cw {
			weekly = append(weekly, week)
			week = d
			continue
		}
		week.High = max(week.High, d.High)
		week.Low = min(week.Low, d.Low)
		week.Close = d.Close
		week.Volume += d.Volume
	}
	return append(weekly, week)
}

// lastN trims bars to the most recent n.
func lastN(bars []model.OHLCV, n int) []model.OHLCV {
	if n > 0 && len(bars) > n {
		return bars[len(bars)-n:]
	}
	return bars
}
