package backtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"surge/internal/engine"

	_ "modernc.org/sqlite"
)

// ResultStore 管理 replay_runs/replay_trades 两张表，沉淀历次回放结果。
type ResultStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewResultStore(path string) (*ResultStore, error) {
	if path == "" {
		return nil, fmt.Errorf("result store path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureResultSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &ResultStore{db: db, path: path}, nil
}

func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureResultSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS replay_runs (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			months TEXT NOT NULL,
			status TEXT NOT NULL,
			bars INTEGER NOT NULL DEFAULT 0,
			trades INTEGER NOT NULL DEFAULT 0,
			win_rate REAL NOT NULL DEFAULT 0,
			total_r REAL NOT NULL DEFAULT 0,
			config_json TEXT NOT NULL,
			stats_json TEXT,
			message TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS replay_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_bar INTEGER NOT NULL DEFAULT 0,
			exit_bar INTEGER NOT NULL DEFAULT 0,
			entry_ts INTEGER NOT NULL,
			entry_px REAL NOT NULL,
			exit_ts INTEGER NOT NULL,
			exit_px REAL NOT NULL,
			exit_reason TEXT NOT NULL,
			r_multiple REAL NOT NULL,
			r_value REAL NOT NULL,
			stop_at_exit REAL NOT NULL,
			tsl_steps INTEGER NOT NULL DEFAULT 0,
			overshoot_r REAL NOT NULL DEFAULT 0,
			hold_bars INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY(run_id) REFERENCES replay_runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON replay_trades(run_id, entry_ts);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun 写入一条 run 记录。
func (s *ResultStore) InsertRun(ctx context.Context, run Run) error {
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return err
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO replay_runs
			(id, symbol, months, status, bars, trades, win_rate, total_r,
			config_json, stats_json, message, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Symbol, run.Months, run.Status, run.Stats.Bars, run.Stats.Trades,
		run.Stats.WinRate, run.Stats.TotalR, string(cfgJSON), bytesOrNil(statsJSON),
		run.Message, now, now, nullableTime(run.CompletedAt))
	return err
}

// UpdateRunSummary 回放结束后更新状态与汇总指标。
func (s *ResultStore) UpdateRunSummary(ctx context.Context, id, status string, stats RunStats, message string) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	var completed interface{}
	if status == RunStatusDone || status == RunStatusFailed {
		completed = now
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE replay_runs
		SET status=?, bars=?, trades=?, win_rate=?, total_r=?, stats_json=?, message=?, updated_at=?,
		    completed_at=CASE WHEN ? IS NULL THEN completed_at ELSE ? END
		WHERE id=?`,
		status, stats.Bars, stats.Trades, stats.WinRate, stats.TotalR,
		string(statsJSON), message, now, completed, completed, id)
	return err
}

// InsertTrades 批量写入一次回放的全部成交。
func (s *ResultStore) InsertTrades(ctx context.Context, runID string, trades []engine.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO replay_trades
			(run_id, symbol, side, entry_bar, exit_bar, entry_ts, entry_px, exit_ts,
			 exit_px, exit_reason, r_multiple, r_value, stop_at_exit, tsl_steps,
			 overshoot_r, hold_bars)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx, runID, t.Symbol, t.Side, t.EntryBar, t.ExitBar,
			t.EntryTS, t.EntryPx, t.ExitTS, t.ExitPx, t.ExitReason, t.RMultiple,
			t.RValue, t.Stop, t.StepCount, t.OvershootR, t.HoldBars); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *ResultStore) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, months, status, config_json, stats_json, message,
		       created_at, updated_at, completed_at
		FROM replay_runs WHERE id=?`, id)
	return scanRun(row)
}

func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, months, status, config_json, stats_json, message,
		       created_at, updated_at, completed_at
		FROM replay_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, run)
	}
	return list, rows.Err()
}

// ListTrades 按入场时间升序读取一次回放的成交。
func (s *ResultStore) ListTrades(ctx context.Context, runID string, limit int) ([]engine.TradeRecord, error) {
	if limit <= 0 || limit > 5000 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, side, entry_bar, exit_bar, entry_ts, entry_px, exit_ts,
		       exit_px, exit_reason, r_multiple, r_value, stop_at_exit,
		       tsl_steps, overshoot_r, hold_bars
		FROM replay_trades
		WHERE run_id=?
		ORDER BY entry_ts ASC, id ASC
		LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []engine.TradeRecord
	for rows.Next() {
		var t engine.TradeRecord
		if err := rows.Scan(&t.Symbol, &t.Side, &t.EntryBar, &t.ExitBar, &t.EntryTS, &t.EntryPx,
			&t.ExitTS, &t.ExitPx, &t.ExitReason, &t.RMultiple, &t.RValue, &t.Stop,
			&t.StepCount, &t.OvershootR, &t.HoldBars); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func bytesOrNil(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var cfgStr string
	var statsStr sql.NullString
	var message sql.NullString
	var createdAt, updatedAt int64
	var completedAt sql.NullInt64
	if err := row.Scan(&run.ID, &run.Symbol, &run.Months, &run.Status,
		&cfgStr, &statsStr, &message, &createdAt, &updatedAt, &completedAt); err != nil {
		return Run{}, err
	}
	run.Message = message.String
	run.CreatedAt = timeFromMillis(createdAt)
	run.UpdatedAt = timeFromMillis(updatedAt)
	if completedAt.Valid {
		run.CompletedAt = timeFromMillis(completedAt.Int64)
	}
	if err := json.Unmarshal([]byte(cfgStr), &run.Config); err != nil {
		return Run{}, err
	}
	if statsStr.Valid && statsStr.String != "" {
		if err := json.Unmarshal([]byte(statsStr.String), &run.Stats); err != nil {
			return Run{}, err
		}
	}
	return run, nil
}

func timeFromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.Unix(0, ms*int64(time.Millisecond))
}
