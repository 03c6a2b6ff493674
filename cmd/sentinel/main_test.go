package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupConfig(t *testing.T, body string) string {
	t.Helper()
	for _, k := range []string{
		"LPPLS_SOURCE", "LPPLS_SYMBOL", "LPPLS_CSV_PATH", "VSTRADER_BASE_URL", "VSTRADER_API_KEY",
		"LPPLS_MAX_SEARCHES", "LPPLS_MINIMIZER", "LPPLS_SEED", "LPPLS_WORKERS", "CRON_SCAN",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "SQLITE_PATH", "HTTPS_PROXY",
	} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sentinel.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(body+"database:\n  sqlite_path: "+dbPath+"\n"), 0o644))
	t.Setenv("CONFIG_PATH", cfgPath)
	return dbPath
}

func countRows(t *testing.T, dbPath, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestRun_Usage(t *testing.T) {
	assert.Equal(t, 0, run([]string{"help"}))
	assert.Equal(t, 2, run([]string{"plot"}))
}

func TestRun_InvalidConfig(t *testing.T) {
	setupConfig(t, "data_source:\n  source: csv\n")

	assert.Equal(t, 1, run([]string{"fit"}))
}

func TestRun_FitFailureReturnsAfterCleanup(t *testing.T) {
	dbPath := setupConfig(t, "data_source:\n  source: csv\n  csv_path: "+filepath.Join(t.TempDir(), "absent.csv")+"\n")

	assert.Equal(t, 1, run([]string{"fit"}))

	// The recorder was opened and closed; nothing was written.
	assert.Equal(t, 0, countRows(t, dbPath, "fit_runs"))
}

func TestRun_FitRecordsRun(t *testing.T) {
	dbPath := setupConfig(t, "data_source:\n  source: mock\nfit:\n  max_searches: 0\n")

	assert.Equal(t, 0, run([]string{"fit"}))

	assert.Equal(t, 1, countRows(t, dbPath, "fit_runs"))
}
