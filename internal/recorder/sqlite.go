package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"BubbleSentinel/internal/model"
)

// SQLiteRecorder persists fits and scans to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while scans write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

// fitColumns are the per-record columns shared by fit_runs and scan_fits.
const fitColumns = `
			t1        REAL,
			t2        REAL,
			tc        REAL,
			m         REAL,
			w         REAL,
			a         REAL,
			b         REAL,
			c         REAL,
			c1        REAL,
			c2        REAL,
			osc       REAL,
			damping   REAL,
			fitted    INTEGER NOT NULL,
			searches  INTEGER`

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fit_runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT,
			interval   TEXT,
			minimizer  TEXT,
			last_price REAL,` + fitColumns + `
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fit_runs_ts ON fit_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS scan_runs (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp            INTEGER NOT NULL,
			symbol               TEXT,
			interval             TEXT,
			minimizer            TEXT,
			window_size          INTEGER,
			smallest_window_size INTEGER,
			outer_increment      INTEGER,
			inner_increment      INTEGER,
			seed                 TEXT,
			group_count          INTEGER,
			fit_count            INTEGER,
			fitted_count         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_runs_ts ON scan_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS scan_fits (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			scan_id     INTEGER NOT NULL REFERENCES scan_runs(id),
			group_index INTEGER NOT NULL,
			window_size INTEGER NOT NULL,
			outer_t1    REAL,
			outer_t2    REAL,
			p2          REAL,` + fitColumns + `
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_fits_scan ON scan_fits(scan_id, group_index)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullFloat maps non-finite values to NULL.
func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// fitValues returns the fitColumns values of rec. Parameters of an unfitted
// record are stored as NULL.
func fitValues(rec model.FitRecord) []any {
	vals := []any{nullFloat(rec.T1), nullFloat(rec.T2)}
	for _, v := range []float64{rec.TC, rec.M, rec.W, rec.A, rec.B, rec.C, rec.C1, rec.C2, rec.O, rec.D} {
		if rec.Fitted {
			vals = append(vals, nullFloat(v))
		} else {
			vals = append(vals, sql.NullFloat64{})
		}
	}
	fitted := 0
	if rec.Fitted {
		fitted = 1
	}
	return append(vals, fitted, rec.Searches)
}

const fitInsertColumns = `t1, t2, tc, m, w, a, b, c, c1, c2, osc, damping, fitted, searches`

func (r *SQLiteRecorder) RecordFit(evt *FitEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	args := append([]any{time.Now().Unix(), evt.Symbol, evt.Interval, evt.Minimizer, nullFloat(evt.LastPrice)},
		fitValues(evt.Record)...)
	_, err := r.db.Exec(`INSERT INTO fit_runs
		(timestamp, symbol, interval, minimizer, last_price, `+fitInsertColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	return err
}

// RecordScan writes the scan header and every nested fit in one transaction.
func (r *SQLiteRecorder) RecordScan(snap *ScanSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := snap.Result
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	p := snap.Params
	out, err := tx.Exec(`INSERT INTO scan_runs
		(timestamp, symbol, interval, minimizer, window_size, smallest_window_size,
		 outer_increment, inner_increment, seed, group_count, fit_count, fitted_count)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), snap.Symbol, snap.Interval, snap.Minimizer,
		p.WindowSize, p.SmallestWindowSize, p.OuterIncrement, p.InnerIncrement,
		strconv.FormatUint(p.Seed, 10), len(res.Groups), res.Total(), res.FittedCount(),
	)
	if err != nil {
		return fmt.Errorf("insert scan_runs: %w", err)
	}
	scanID, err := out.LastInsertId()
	if err != nil {
		return fmt.Errorf("scan id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO scan_fits
		(scan_id, group_index, window_size, outer_t1, outer_t2, p2, ` + fitInsertColumns + `)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare scan_fits: %w", err)
	}
	defer stmt.Close()

	for _, g := range res.Groups {
		for k, rec := range g.Fits {
			args := append([]any{scanID, g.Index, res.WindowSizes[k], nullFloat(g.T1), nullFloat(g.T2), nullFloat(g.P2)},
				fitValues(rec)...)
			if _, err := stmt.Exec(args...); err != nil {
				return fmt.Errorf("insert scan_fits group %d: %w", g.Index, err)
			}
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
