// database_runs.go - Run CRUD Operationen
// Enthaelt: saveRun, getRuns, getRun, deleteRun

package store

import (
	"database/sql"
	"errors"
	"fmt"
)

const runColumns = `id, model, backend, prefer, frames, num_errors, num_scores,
	max_error, avg_error, avg_rms, std_dev, max_rel_error, avg_rel_error,
	latency_mean_ms, latency_p95_ms, rms_p50, rms_p95, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	err := s.Scan(
		&r.ID, &r.Model, &r.Backend, &r.Prefer, &r.Report.Frames,
		&r.Report.NumErrors, &r.Report.NumScores,
		&r.Report.MaxError, &r.Report.AvgError, &r.Report.AvgRMS, &r.Report.StdDev,
		&r.Report.MaxRelError, &r.Report.AvgRelError,
		&r.LatencyMeanMS, &r.LatencyP95MS, &r.RMSSpread.P50, &r.RMSSpread.P95,
		&r.CreatedAt,
	)
	return r, err
}

// saveRun legt einen Run an oder ersetzt ihn
func (db *database) saveRun(r Run) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Model, r.Backend, r.Prefer, r.Report.Frames,
		r.Report.NumErrors, r.Report.NumScores,
		r.Report.MaxError, r.Report.AvgError, r.Report.AvgRMS, r.Report.StdDev,
		r.Report.MaxRelError, r.Report.AvgRelError,
		r.LatencyMeanMS, r.LatencyP95MS, r.RMSSpread.P50, r.RMSSpread.P95,
		r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// getRuns gibt die neuesten Runs zuerst zurueck, hoechstens limit Stueck
func (db *database) getRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func (db *database) getRun(id string) (Run, error) {
	r, err := scanRun(db.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	return r, nil
}

func (db *database) deleteRun(id string) error {
	res, err := db.conn.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
