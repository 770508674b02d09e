package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nexelor/media-collector/internal/scheduler"
)

var (
	// ErrInvalidTransition reports an attempt to move a task record backwards.
	ErrInvalidTransition = errors.New("invalid task status transition")
	// ErrRecordNotFound reports a task id with no stored record.
	ErrRecordNotFound = errors.New("task record not found")
)

var _ scheduler.RecordStore = (*Store)(nil)
var _ scheduler.Documents = (*Store)(nil)

const recordColumns = "id, queue, name, priority, status, error, created_at, updated_at, payload"

// TaskFilter narrows ListTaskRecords. Zero values match everything.
type TaskFilter struct {
	Queue string
	Name  string
	State scheduler.State
	Limit int
}

// SaveTaskRecord inserts rec or updates the stored copy. The update is
// refused with ErrInvalidTransition when it would move the status backwards,
// except that a Pending save over a terminal record replaces it. created_at is
// kept from the first write of a lifecycle.
func (s *Store) SaveTaskRecord(ctx context.Context, queue string, rec scheduler.Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("task record id is required")
	}
	priority, err := rec.Priority.MarshalJSON()
	if err != nil {
		return err
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	payload := string(rec.Payload)
	if payload == "" {
		payload = "null"
	}
	now := formatTime(time.Now())

	return s.inTx(ctx, func(tx *sql.Tx) error {
		current, found, err := currentState(ctx, tx, rec.ID)
		if err != nil {
			return err
		}
		switch {
		case found && current.Terminal() && rec.Status.State == scheduler.StatePending:
			// Resubmission under a reused id starts a new lifecycle.
			if _, err := tx.ExecContext(ctx, `DELETE FROM task_records WHERE id = ?`, rec.ID); err != nil {
				return fmt.Errorf("reset task record %s: %w", rec.ID, err)
			}
		case found && !current.CanTransition(rec.Status.State):
			return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, rec.ID, current, rec.Status.State)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO task_records (`+recordColumns+`)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(id) DO UPDATE SET
                 queue = excluded.queue, name = excluded.name, priority = excluded.priority,
                 status = excluded.status, error = excluded.error,
                 updated_at = excluded.updated_at, payload = excluded.payload`,
			rec.ID, queue, rec.Name, strings.Trim(string(priority), `"`),
			string(rec.Status.State), nullableString(rec.Status.Error),
			formatTime(createdAt), now, payload,
		)
		if err != nil {
			return fmt.Errorf("save task record %s: %w", rec.ID, err)
		}
		return nil
	})
}

// UpdateTaskStatus moves an existing record to status.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status scheduler.Status) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		current, found, err := currentState(ctx, tx, id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		if !current.CanTransition(status.State) {
			return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, id, current, status.State)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE task_records SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
			string(status.State), nullableString(status.Error), formatTime(time.Now()), id,
		); err != nil {
			return fmt.Errorf("update task status %s: %w", id, err)
		}
		return nil
	})
}

func currentState(ctx context.Context, tx *sql.Tx, id string) (scheduler.State, bool, error) {
	var state string
	err := tx.QueryRowContext(ctx, `SELECT status FROM task_records WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read task status %s: %w", id, err)
	}
	return scheduler.State(state), true, nil
}

// TaskRecord returns the record stored under id.
func (s *Store) TaskRecord(ctx context.Context, id string) (scheduler.Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+recordColumns+` FROM task_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return scheduler.Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	if err != nil {
		return scheduler.Record{}, fmt.Errorf("get task record %s: %w", id, err)
	}
	return rec, nil
}

// TaskRecordsByState lists queue's records in state, oldest first.
func (s *Store) TaskRecordsByState(ctx context.Context, queue string, state scheduler.State) ([]scheduler.Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM task_records WHERE queue = ? AND status = ? ORDER BY created_at ASC, id ASC`,
		queue, string(state),
	)
	if err != nil {
		return nil, fmt.Errorf("list %s task records: %w", state, err)
	}
	return collectRecords(rows)
}

// ListTaskRecords returns records matching filter, newest first.
func (s *Store) ListTaskRecords(ctx context.Context, filter TaskFilter) ([]scheduler.Record, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Queue != "" {
		clauses = append(clauses, "queue = ?")
		args = append(args, filter.Queue)
	}
	if filter.Name != "" {
		clauses = append(clauses, "name = ?")
		args = append(args, filter.Name)
	}
	if filter.State != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.State))
	}
	query := `SELECT ` + recordColumns + ` FROM task_records`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list task records: %w", err)
	}
	return collectRecords(rows)
}

// TaskStats counts records grouped by state.
func (s *Store) TaskStats(ctx context.Context) (map[scheduler.State]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM task_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[scheduler.State]int)
	for rows.Next() {
		var (
			state string
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[scheduler.State(state)] = count
	}
	return stats, rows.Err()
}

// PruneTaskRecords deletes records last updated before cutoff whose state is
// one of states. With no states, only terminal records are pruned.
func (s *Store) PruneTaskRecords(ctx context.Context, cutoff time.Time, states ...scheduler.State) (int64, error) {
	if len(states) == 0 {
		states = []scheduler.State{scheduler.StateCompleted, scheduler.StateFailed}
	}
	args := make([]any, 0, len(states)+1)
	args = append(args, formatTime(cutoff))
	for _, state := range states {
		args = append(args, string(state))
	}
	res, err := s.execWithRetry(ctx,
		`DELETE FROM task_records WHERE updated_at < ? AND status IN (`+makePlaceholders(len(states))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("prune task records: %w", err)
	}
	return res.RowsAffected()
}

func collectRecords(rows *sql.Rows) ([]scheduler.Record, error) {
	defer rows.Close()
	var records []scheduler.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (scheduler.Record, error) {
	var (
		rec        scheduler.Record
		priority   string
		status     string
		errMsg     sql.NullString
		createdRaw string
		updatedRaw string
		payload    sql.NullString
	)
	if err := scanner.Scan(&rec.ID, &rec.Queue, &rec.Name, &priority, &status, &errMsg, &createdRaw, &updatedRaw, &payload); err != nil {
		return scheduler.Record{}, err
	}
	if parsed, err := scheduler.ParsePriority(priority); err == nil {
		rec.Priority = parsed
	}
	rec.Status = scheduler.Status{State: scheduler.State(status), Error: errMsg.String}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	if payload.Valid && payload.String != "" {
		rec.Payload = json.RawMessage(payload.String)
	}
	return rec, nil
}
