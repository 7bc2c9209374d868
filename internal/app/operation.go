package app

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks a CLI invocation that may mutate the record store.
// Operations live in memory until persisted. Only mutating commands
// persist them, as a row in the runs table keyed by ID.
type Operation struct {
	ID         string
	Command    string
	Parameters string
	Status     string
	StartedAt  time.Time

	// Result is encoded as the run summary on finish.
	Result any
	// Err is recorded instead of Result when the command failed.
	Err error

	persisted bool
}

// NewOperation creates a new in-memory operation.
func NewOperation(id, command, parameters string, startedAt time.Time) *Operation {
	return &Operation{
		ID:         id,
		Command:    command,
		Parameters: parameters,
		Status:     StatusSuccess,
		StartedAt:  startedAt,
	}
}

// Persisted returns true if this operation has been saved to the database.
func (op *Operation) Persisted() bool {
	return op.persisted
}

// Record stores the outcome of the command. A non-nil err marks the
// operation failed and is returned unchanged.
func (op *Operation) Record(result any, err error) error {
	if err != nil {
		op.Status = StatusError
		op.Err = err
		return err
	}
	op.Result = result
	return nil
}

// SummaryJSON encodes the result, or the error for failed operations.
func (op *Operation) SummaryJSON() (string, error) {
	var v any = op.Result
	if op.Err != nil {
		v = map[string]string{"error": op.Err.Error()}
	}
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding run summary: %w", err)
	}
	return string(b), nil
}
