package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RunKindAgent     = "agent"
	RunKindChain     = "chain"
	RunKindBroadcast = "broadcast"

	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is one agent or chain execution as recorded in history.
type Run struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Name        string     `json:"name"`
	Input       string     `json:"input,omitempty"`
	Status      string     `json:"status"`
	Output      string     `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
	Metadata    string     `json:"metadata,omitempty"`
	RequestedBy string     `json:"requested_by,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreateRun opens a history record in the running state and returns its id.
func (s *Store) CreateRun(kind, name, input, requestedBy string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO runs (id, kind, name, input, requested_by)
		VALUES (?, ?, ?, ?, ?)`,
		id, kind, name, input, requestedBy)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// CompleteRun closes a history record. runErr empty means success.
func (s *Store) CompleteRun(id, output, runErr, metadata string) error {
	status := RunStatusCompleted
	if runErr != "" {
		status = RunStatusFailed
	}
	_, err := s.db.Exec(`
		UPDATE runs SET status = ?, output = ?, error = ?, metadata = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		status, output, runErr, metadata, id)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, kind, name, input, status, output, error, metadata,
			requested_by, started_at, completed_at
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, kind, name, input, status, output, error, metadata,
			requested_by, started_at, completed_at
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	run := &Run{}
	var input, output, runErr, metadata, requestedBy sql.NullString
	var completedAt sql.NullTime
	err := sc.Scan(&run.ID, &run.Kind, &run.Name, &input, &run.Status,
		&output, &runErr, &metadata, &requestedBy, &run.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	run.Input = input.String
	run.Output = output.String
	run.Error = runErr.String
	run.Metadata = metadata.String
	run.RequestedBy = requestedBy.String
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}
