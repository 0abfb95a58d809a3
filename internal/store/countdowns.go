package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const countdownColumns = `id, run_id, planned_seconds, added_seconds, adjusted_seconds, pauses, remaining_seconds, status, shutdown_error, started_at, ended_at`

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("countdown not found")

func (s *Store) StartCountdown(runID string, plannedSeconds int) (*Countdown, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO countdowns (run_id, planned_seconds, remaining_seconds, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, plannedSeconds, plannedSeconds, StatusRunning, now,
	)
	if err != nil {
		return nil, fmt.Errorf("start countdown: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetCountdown(id)
}

func (s *Store) RecordPause(id int64) error {
	_, err := s.db.Exec(`UPDATE countdowns SET pauses = pauses + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("record pause: %w", err)
	}
	return nil
}

func (s *Store) RecordAdded(id int64, seconds int) error {
	_, err := s.db.Exec(`UPDATE countdowns SET added_seconds = added_seconds + ? WHERE id = ?`, seconds, id)
	if err != nil {
		return fmt.Errorf("record added time: %w", err)
	}
	return nil
}

// RecordAdjusted adds the net change of a field edit made during a run.
// delta may be negative.
func (s *Store) RecordAdjusted(id int64, delta int) error {
	_, err := s.db.Exec(`UPDATE countdowns SET adjusted_seconds = adjusted_seconds + ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("record adjusted time: %w", err)
	}
	return nil
}

// FinishCountdown closes a run with its final status and remaining time.
func (s *Store) FinishCountdown(id int64, status string, remainingSeconds int, shutdownErr string) (*Countdown, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE countdowns SET status = ?, remaining_seconds = ?, shutdown_error = ?, ended_at = ? WHERE id = ?`,
		status, remainingSeconds, shutdownErr, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("finish countdown: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("finish countdown %d: %w", id, ErrNotFound)
	}
	return s.GetCountdown(id)
}

// AbandonRunning marks runs left open by a previous process as abandoned.
// Countdowns are never resumed across restarts.
func (s *Store) AbandonRunning() (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE countdowns SET status = ?, ended_at = ? WHERE status = ?`,
		StatusAbandoned, now, StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("abandon running: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) GetCountdown(id int64) (*Countdown, error) {
	row := s.db.QueryRow(`SELECT `+countdownColumns+` FROM countdowns WHERE id = ?`, id)
	c, err := scanCountdown(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get countdown %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get countdown %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) GetCountdownByRun(runID string) (*Countdown, error) {
	row := s.db.QueryRow(`SELECT `+countdownColumns+` FROM countdowns WHERE run_id = ?`, runID)
	c, err := scanCountdown(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get countdown %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get countdown %s: %w", runID, err)
	}
	return c, nil
}

func (s *Store) ListCountdowns(f CountdownFilter) ([]Countdown, error) {
	query := `SELECT ` + countdownColumns + ` FROM countdowns WHERE 1=1`
	var args []any

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.From != nil {
		query += ` AND started_at >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		query += ` AND started_at < ?`
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list countdowns: %w", err)
	}
	defer rows.Close()

	var out []Countdown
	for rows.Next() {
		c, err := scanCountdown(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetDailySummary aggregates finished runs started in [from, to).
func (s *Store) GetDailySummary(from, to time.Time) ([]DailySummary, error) {
	rows, err := s.db.Query(`
		SELECT date(started_at) AS day,
		       COUNT(*),
		       SUM(CASE WHEN status IN ('completed', 'failed') THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'stopped' THEN 1 ELSE 0 END),
		       COALESCE(SUM(CASE WHEN status IN ('completed', 'failed')
		                    THEN MAX(planned_seconds + added_seconds + adjusted_seconds - remaining_seconds, 0) END), 0),
		       COALESCE(SUM(CASE WHEN status = 'stopped'
		                    THEN MAX(planned_seconds + added_seconds + adjusted_seconds - remaining_seconds, 0) END), 0)
		FROM countdowns
		WHERE status != 'running'
		  AND started_at >= ? AND started_at < ?
		GROUP BY day
		ORDER BY day`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}
	defer rows.Close()

	var summaries []DailySummary
	for rows.Next() {
		var ds DailySummary
		if err := rows.Scan(&ds.Date, &ds.Runs, &ds.Completed, &ds.Stopped, &ds.CompletedSeconds, &ds.StoppedSeconds); err != nil {
			return nil, err
		}
		summaries = append(summaries, ds)
	}
	return summaries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCountdown(r rowScanner) (*Countdown, error) {
	c := &Countdown{}
	var startedAt string
	var endedAt sql.NullString
	err := r.Scan(&c.ID, &c.RunID, &c.PlannedSeconds, &c.AddedSeconds, &c.AdjustedSeconds, &c.Pauses,
		&c.RemainingSeconds, &c.Status, &c.ShutdownError, &startedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	c.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if endedAt.Valid {
		t, _ := time.Parse(time.RFC3339, endedAt.String)
		c.EndedAt = &t
	}
	return c, nil
}
