package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	started := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		command    string
		parameters string
	}{
		{
			name:       "with parameters",
			command:    "Run",
			parameters: "docs",
		},
		{
			name:       "empty parameters",
			command:    "Repair",
			parameters: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("run-1", tt.command, tt.parameters, started)

			if op.Command != tt.command {
				t.Errorf("Command = %q, want %q", op.Command, tt.command)
			}
			if op.Parameters != tt.parameters {
				t.Errorf("Parameters = %q, want %q", op.Parameters, tt.parameters)
			}
			if op.Status != StatusSuccess {
				t.Errorf("Status = %q, want %q", op.Status, StatusSuccess)
			}
			if op.Persisted() {
				t.Error("Persisted() = true for a new operation")
			}
			if !op.StartedAt.Equal(started) {
				t.Errorf("StartedAt = %v, want %v", op.StartedAt, started)
			}
		})
	}
}

func TestOperation_Record(t *testing.T) {
	t.Run("success keeps result", func(t *testing.T) {
		op := NewOperation("run-1", "Prune", "", time.Now())
		if err := op.Record(map[string]int64{"docs": 42}, nil); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if op.Status != StatusSuccess {
			t.Errorf("Status = %q, want %q", op.Status, StatusSuccess)
		}

		got, err := op.SummaryJSON()
		if err != nil {
			t.Fatalf("SummaryJSON() error = %v", err)
		}
		if got != `{"docs":42}` {
			t.Errorf("SummaryJSON() = %q, want %q", got, `{"docs":42}`)
		}
	})

	t.Run("failure records error", func(t *testing.T) {
		op := NewOperation("run-2", "Run", "", time.Now())
		want := errors.New("vault unreachable")

		if err := op.Record(nil, want); !errors.Is(err, want) {
			t.Fatalf("Record() error = %v, want %v", err, want)
		}
		if op.Status != StatusError {
			t.Errorf("Status = %q, want %q", op.Status, StatusError)
		}

		got, err := op.SummaryJSON()
		if err != nil {
			t.Fatalf("SummaryJSON() error = %v", err)
		}
		if got != `{"error":"vault unreachable"}` {
			t.Errorf("SummaryJSON() = %q", got)
		}
	})

	t.Run("no result encodes empty", func(t *testing.T) {
		op := NewOperation("run-3", "AddTarget", "", time.Now())
		got, err := op.SummaryJSON()
		if err != nil {
			t.Fatalf("SummaryJSON() error = %v", err)
		}
		if got != "" {
			t.Errorf("SummaryJSON() = %q, want empty", got)
		}
	})
}
