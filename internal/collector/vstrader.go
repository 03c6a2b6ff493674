package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"BubbleSentinel/internal/model"
)

// VsTraderFetcher implements Fetcher using the vstrader REST API.
// Bars with a non-positive close are dropped before they reach the fitter.
type VsTraderFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey, proxyURL string) *VsTraderFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &VsTraderFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *VsTraderFetcher) FetchDailyBars(symbol string, days int) ([]model.OHLCV, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=%d", f.BaseURL, url.QueryEscape(symbol), days)
	return f.fetchBars(endpoint)
}

func (f *VsTraderFetcher) FetchWeeklyBars(symbol string, weeks int) ([]model.OHLCV, error) {
	// Try weekly endpoint first; if API only provides daily, aggregate internally.
	endpoint := fmt.Sprintf("%s/api/v1/bars/weekly?symbol=%s&limit=%d", f.BaseURL, url.QueryEscape(symbol), weeks)
	bars, err := f.fetchBars(endpoint)
	if err != nil {
		// Fallback: fetch enough daily bars and aggregate to weekly
		dailyBars, dailyErr := f.FetchDailyBars(symbol, weeks*7)
		if dailyErr != nil {
			return nil, fmt.Errorf("weekly fetch failed: %w; daily fallback also failed: %w", err, dailyErr)
		}
		return lastN(aggregateDailyToWeekly(dailyBars), weeks), nil
	}
	return bars, nil
}

func (f *VsTraderFetcher) fetchBars(endpoint string) ([]model.OHLCV, error) {
	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var vsBars []vsBar
	if err := json.NewDecoder(resp.Body).Decode(&vsBars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.OHLCV, 0, len(vsBars))
	for _, vb := range vsBars {
		if vb.Close <= 0 {
			continue
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(vb.Timestamp, 0),
			Open:   vb.Open,
			High:   vb.High,
			Low:    vb.Low,
			Close:  vb.Close,
			Volume: vb.Volume,
		})
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
