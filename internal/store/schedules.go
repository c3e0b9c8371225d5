package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ScheduleState is the persisted bookkeeping for one recurring schedule.
// The schedule itself lives in the presets datum; this row only tracks when
// it ran and what happened.
type ScheduleState struct {
	Name       string     `json:"name"`
	Cron       string     `json:"cron"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	LastStatus string     `json:"last_status,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// UpsertSchedule registers or refreshes a schedule's row, keeping existing
// bookkeeping when the cron expression is unchanged.
func (s *Store) UpsertSchedule(name, cron string, nextRun time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO schedule_state (name, cron, next_run_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			cron=excluded.cron, next_run_at=excluded.next_run_at`,
		name, cron, nextRun.UTC())
	if err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

// MarkScheduleRun records the outcome of a fire and the next due time.
func (s *Store) MarkScheduleRun(name string, nextRun time.Time, runErr string) error {
	status := RunStatusCompleted
	if runErr != "" {
		status = RunStatusFailed
	}
	_, err := s.db.Exec(`
		UPDATE schedule_state SET
			last_run_at = CURRENT_TIMESTAMP,
			next_run_at = ?,
			last_status = ?,
			last_error = ?
		WHERE name = ?`,
		nextRun.UTC(), status, runErr, name)
	if err != nil {
		return fmt.Errorf("mark schedule run: %w", err)
	}
	return nil
}

func (s *Store) GetSchedule(name string) (*ScheduleState, error) {
	row := s.db.QueryRow(`
		SELECT name, cron, next_run_at, last_run_at, last_status, last_error
		FROM schedule_state WHERE name = ?`, name)
	st, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return st, nil
}

func (s *Store) ListSchedules() ([]ScheduleState, error) {
	rows, err := s.db.Query(`
		SELECT name, cron, next_run_at, last_run_at, last_status, last_error
		FROM schedule_state ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var states []ScheduleState
	for rows.Next() {
		st, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		states = append(states, *st)
	}
	return states, rows.Err()
}

// PruneSchedules drops rows for schedules no longer present in the presets
// datum.
func (s *Store) PruneSchedules(keep []string) error {
	known := make(map[string]bool, len(keep))
	for _, name := range keep {
		known[name] = true
	}

	names, err := s.scheduleNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if known[name] {
			continue
		}
		if _, err := s.db.Exec(`DELETE FROM schedule_state WHERE name = ?`, name); err != nil {
			return fmt.Errorf("prune schedule %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) scheduleNames() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM schedule_state`)
	if err != nil {
		return nil, fmt.Errorf("schedule names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanSchedule(sc scanner) (*ScheduleState, error) {
	st := &ScheduleState{}
	var nextRun, lastRun sql.NullTime
	var lastStatus, lastError sql.NullString
	err := sc.Scan(&st.Name, &st.Cron, &nextRun, &lastRun, &lastStatus, &lastError)
	if err != nil {
		return nil, err
	}
	if nextRun.Valid {
		st.NextRunAt = &nextRun.Time
	}
	if lastRun.Valid {
		st.LastRunAt = &lastRun.Time
	}
	st.LastStatus = lastStatus.String
	st.LastError = lastError.String
	return st, nil
}
