package scheduler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// State is the lifecycle phase of a task record.
type State string

const (
	StatePending   State = "Pending"
	StateRunning   State = "Running"
	StateCompleted State = "Completed"
	StateFailed    State = "Failed"
)

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition reports whether a record may move from s to next. Status only
// moves forward: Pending, then Running, then Completed or Failed. Pending may
// also fail directly when a task cannot be restored.
func (s State) CanTransition(next State) bool {
	switch s {
	case "":
		return true
	case StatePending:
		return next == StatePending || next == StateRunning || next == StateFailed
	case StateRunning:
		return next == StateCompleted || next == StateFailed
	default:
		return false
	}
}

// Status is a record state plus the failure message for Failed.
// It serializes as "Pending", "Running", "Completed" or
// {"Failed":{"error":"..."}}.
type Status struct {
	State State
	Error string
}

func Pending() Status   { return Status{State: StatePending} }
func Running() Status   { return Status{State: StateRunning} }
func Completed() Status { return Status{State: StateCompleted} }

// Failed returns a failed status carrying msg.
func Failed(msg string) Status { return Status{State: StateFailed, Error: msg} }

func (s Status) String() string {
	if s.State == StateFailed && s.Error != "" {
		return fmt.Sprintf("Failed(%s)", s.Error)
	}
	return string(s.State)
}

type failedBody struct {
	Failed struct {
		Error string `json:"error"`
	} `json:"Failed"`
}

func (s Status) MarshalJSON() ([]byte, error) {
	switch s.State {
	case StatePending, StateRunning, StateCompleted:
		return json.Marshal(string(s.State))
	case StateFailed:
		var body failedBody
		body.Failed.Error = s.Error
		return json.Marshal(body)
	default:
		return nil, fmt.Errorf("invalid task state %q", s.State)
	}
}

func (s *Status) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		switch State(name) {
		case StatePending, StateRunning, StateCompleted:
			*s = Status{State: State(name)}
			return nil
		default:
			return fmt.Errorf("unknown task state %q", name)
		}
	}
	var body failedBody
	if err := json.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("task status: %w", err)
	}
	*s = Failed(body.Failed.Error)
	return nil
}

// Record is the persisted projection of a task.
type Record struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Priority  Priority        `json:"priority"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
	Queue     string          `json:"queue,omitempty"`
	UpdatedAt time.Time       `json:"updated_at,omitzero"`
}

// DecodePayload unmarshals a record payload into T.
func DecodePayload[T any](rec Record) (T, error) {
	var out T
	if len(rec.Payload) == 0 {
		return out, fmt.Errorf("task %s: empty payload", rec.ID)
	}
	if err := json.Unmarshal(rec.Payload, &out); err != nil {
		return out, fmt.Errorf("task %s: decode payload: %w", rec.ID, err)
	}
	return out, nil
}
