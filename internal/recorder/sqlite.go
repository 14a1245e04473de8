package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"MetalSentinel/internal/model"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var _ Recorder = (*SQLiteRecorder)(nil)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sqlx.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode lets report queries read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	zap.L().Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS training_runs (
			id                TEXT PRIMARY KEY,
			symbol            TEXT NOT NULL,
			trained_at        INTEGER NOT NULL,
			data_start        TEXT NOT NULL,
			data_end          TEXT NOT NULL,
			observations      INTEGER,
			changepoints      INTEGER,
			residual_variance REAL,
			took_ms           INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_symbol_ts ON training_runs(symbol, trained_at)`,

		`CREATE TABLE IF NOT EXISTS forecasts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			currency   TEXT,
			ds         TEXT NOT NULL,
			yhat       REAL,
			yhat_lower REAL,
			yhat_upper REAL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forecasts_run ON forecasts(run_id)`,

		`CREATE TABLE IF NOT EXISTS monthly_stats (
			symbol      TEXT NOT NULL,
			year        INTEGER NOT NULL,
			month       INTEGER NOT NULL,
			start_price REAL,
			end_price   REAL,
			change      REAL,
			high        REAL,
			low         REAL,
			trend       TEXT,
			recorded_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, year, month)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTraining(run *TrainingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.NamedExec(`INSERT INTO training_runs
		(id, symbol, trained_at, data_start, data_end, observations, changepoints, residual_variance, took_ms)
		VALUES (:id, :symbol, :trained_at, :data_start, :data_end, :observations, :changepoints, :residual_variance, :took_ms)`,
		toRunRow(run))
	return err
}

// forecastRow is one stored forecast point.
type forecastRow struct {
	RunID     string  `db:"run_id"`
	Symbol    string  `db:"symbol"`
	Currency  string  `db:"currency"`
	Date      string  `db:"ds"`
	Yhat      float64 `db:"yhat"`
	YhatLower float64 `db:"yhat_lower"`
	YhatUpper float64 `db:"yhat_upper"`
	CreatedAt int64   `db:"created_at"`
}

func (r *SQLiteRecorder) RecordForecast(rec *ForecastRecord) error {
	if len(rec.Points) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	for _, p := range rec.Points {
		row := forecastRow{
			RunID:     rec.RunID,
			Symbol:    rec.Symbol,
			Currency:  rec.Currency,
			Date:      p.Date.Format(model.DateLayout),
			Yhat:      p.Yhat,
			YhatLower: p.YhatLower,
			YhatUpper: p.YhatUpper,
			CreatedAt: now,
		}
		if _, err := tx.NamedExec(`INSERT INTO forecasts
			(run_id, symbol, currency, ds, yhat, yhat_lower, yhat_upper, created_at)
			VALUES (:run_id, :symbol, :currency, :ds, :yhat, :yhat_lower, :yhat_upper, :created_at)`, row); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert forecast %s: %w", row.Date, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordMonthly(symbol string, stats *model.MonthlyStats) error {
	if stats == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR REPLACE INTO monthly_stats
		(symbol, year, month, start_price, end_price, change, high, low, trend, recorded_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		symbol, stats.Year, int(stats.Month), stats.StartPrice, stats.EndPrice,
		stats.Change, stats.High, stats.Low, string(stats.Trend), time.Now().Unix(),
	)
	return err
}

// runRow mirrors training_runs.
type runRow struct {
	ID               string  `db:"id"`
	Symbol           string  `db:"symbol"`
	TrainedAt        int64   `db:"trained_at"`
	DataStart        string  `db:"data_start"`
	DataEnd          string  `db:"data_end"`
	Observations     int     `db:"observations"`
	Changepoints     int     `db:"changepoints"`
	ResidualVariance float64 `db:"residual_variance"`
	TookMS           int64   `db:"took_ms"`
}

func toRunRow(run *TrainingRun) runRow {
	return runRow{
		ID:               run.ID,
		Symbol:           run.Symbol,
		TrainedAt:        run.TrainedAt.Unix(),
		DataStart:        run.DataStart.Format(model.DateLayout),
		DataEnd:          run.DataEnd.Format(model.DateLayout),
		Observations:     run.Observations,
		Changepoints:     run.Changepoints,
		ResidualVariance: run.ResidualVariance,
		TookMS:           run.Took.Milliseconds(),
	}
}

func (row runRow) toRun() TrainingRun {
	start, _ := time.Parse(model.DateLayout, row.DataStart)
	end, _ := time.Parse(model.DateLayout, row.DataEnd)
	return TrainingRun{
		ID:               row.ID,
		Symbol:           row.Symbol,
		TrainedAt:        time.Unix(row.TrainedAt, 0).UTC(),
		DataStart:        start,
		DataEnd:          end,
		Observations:     row.Observations,
		Changepoints:     row.Changepoints,
		ResidualVariance: row.ResidualVariance,
		Took:             time.Duration(row.TookMS) * time.Millisecond,
	}
}

// RecentRuns returns up to limit training runs, newest first. An empty symbol matches all.
func (r *SQLiteRecorder) RecentRuns(symbol string, limit int) ([]TrainingRun, error) {
	var rows []runRow
	err := r.db.Select(&rows, `SELECT id, symbol, trained_at, data_start, data_end, observations,
		changepoints, residual_variance, took_ms
		FROM training_runs
		WHERE (? = '' OR symbol = ?)
		ORDER BY trained_at DESC, rowid DESC
		LIMIT ?`, symbol, symbol, limit)
	if err != nil {
		return nil, err
	}
	runs := make([]TrainingRun, len(rows))
	for i, row := range rows {
		runs[i] = row.toRun()
	}
	return runs, nil
}

func (r *SQLiteRecorder) Close() error {
	zap.L().Info("closing sqlite recorder")
	return r.db.Close()
}
