package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"BubbleSentinel/internal/lppls"
	"BubbleSentinel/internal/model"
)

// Data source names.
const (
	SourceYahoo    = "yahoo"
	SourceVsTrader = "vstrader"
	SourceCSV      = "csv"
	SourceMock     = "mock"
)

// DefaultMaxSearches is the fit search budget when fit.max_searches is not set.
const DefaultMaxSearches = 25

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Source   string `yaml:"source"`
		Symbol   string `yaml:"symbol"`
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		CSVPath  string `yaml:"csv_path"`
		Interval string `yaml:"interval"`
		Bars     int    `yaml:"bars"`
	} `yaml:"data_source"`
	Fit struct {
		MaxSearches int    `yaml:"max_searches"`
		Minimizer   string `yaml:"minimizer"`
		Seed        uint64 `yaml:"seed"`
	} `yaml:"fit"`
	Scan struct {
		WindowSize         int  `yaml:"window_size"`
		SmallestWindowSize int  `yaml:"smallest_window_size"`
		OuterIncrement     int  `yaml:"outer_increment"`
		InnerIncrement     int  `yaml:"inner_increment"`
		Parallel           bool `yaml:"parallel"`
		Workers            int  `yaml:"workers"`
	} `yaml:"scan"`
	Schedule struct {
		ScanCron string `yaml:"scan_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Zero is a valid search budget, so its default is set before the file
	// and the environment are read rather than filled in afterwards.
	cfg.Fit.MaxSearches = DefaultMaxSearches

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"LPPLS_SOURCE":       &c.DataSource.Source,
		"LPPLS_SYMBOL":       &c.DataSource.Symbol,
		"LPPLS_CSV_PATH":     &c.DataSource.CSVPath,
		"VSTRADER_BASE_URL":  &c.DataSource.BaseURL,
		"VSTRADER_API_KEY":   &c.DataSource.APIKey,
		"LPPLS_MINIMIZER":    &c.Fit.Minimizer,
		"CRON_SCAN":          &c.Schedule.ScanCron,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"HTTPS_PROXY":        &c.Proxy,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LPPLS_MAX_SEARCHES": &c.Fit.MaxSearches,
		"LPPLS_WORKERS":      &c.Scan.Workers,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("LPPLS_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("LPPLS_SEED: %w", err)
		}
		c.Fit.Seed = seed
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DataSource.Source == "" {
		c.DataSource.Source = SourceYahoo
	}
	c.DataSource.Source = strings.ToLower(c.DataSource.Source)
	if c.DataSource.Symbol == "" {
		c.DataSource.Symbol = "SPX"
	}
	if c.DataSource.Interval == "" {
		c.DataSource.Interval = string(model.IntervalDaily)
	}
	if c.DataSource.Bars == 0 {
		c.DataSource.Bars = 500
	}
	if c.Fit.Minimizer == "" {
		c.Fit.Minimizer = lppls.MethodNelderMead
	}

	def := lppls.DefaultScanParams()
	if c.Scan.WindowSize == 0 {
		c.Scan.WindowSize = def.WindowSize
	}
	if c.Scan.SmallestWindowSize == 0 {
		c.Scan.SmallestWindowSize = def.SmallestWindowSize
	}
	if c.Scan.OuterIncrement == 0 {
		c.Scan.OuterIncrement = def.OuterIncrement
	}
	if c.Scan.InnerIncrement == 0 {
		c.Scan.InnerIncrement = def.InnerIncrement
	}

	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 30 22 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/bubble_sentinel.db"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.DataSource.Source {
	case SourceYahoo, SourceMock:
	case SourceVsTrader:
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for source %q", SourceVsTrader)
		}
	case SourceCSV:
		if c.DataSource.CSVPath == "" {
			return fmt.Errorf("data_source.csv_path is required for source %q", SourceCSV)
		}
	default:
		return fmt.Errorf("data_source.source %q is not one of yahoo, vstrader, csv, mock", c.DataSource.Source)
	}
	switch model.Interval(c.DataSource.Interval) {
	case model.IntervalDaily, model.IntervalWeekly:
	default:
		return fmt.Errorf("data_source.interval %q must be %q or %q",
			c.DataSource.Interval, model.IntervalDaily, model.IntervalWeekly)
	}
	if c.DataSource.Bars < c.Scan.WindowSize {
		return fmt.Errorf("data_source.bars %d must cover scan.window_size %d", c.DataSource.Bars, c.Scan.WindowSize)
	}
	if c.Fit.MaxSearches < 0 {
		return fmt.Errorf("fit.max_searches must not be negative")
	}
	if _, err := lppls.NewMinimizer(c.Fit.Minimizer, 0); err != nil {
		return fmt.Errorf("fit.minimizer: %w", err)
	}
	if err := c.ScanParams().Validate(c.Scan.WindowSize); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// ScanParams returns the nested scan parameters.
func (c *Config) ScanParams() lppls.ScanParams {
	return lppls.ScanParams{
		WindowSize:         c.Scan.WindowSize,
		SmallestWindowSize: c.Scan.SmallestWindowSize,
		OuterIncrement:     c.Scan.OuterIncrement,
		InnerIncrement:     c.Scan.InnerIncrement,
		Parallel:           c.Scan.Parallel,
		Workers:            c.Scan.Workers,
		Seed:               c.Fit.Seed,
	}
}
