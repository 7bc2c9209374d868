package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBcktHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "archive created",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tarchive created\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "keeping newer archive",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tkeeping newer archive\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelWarn,
			message: "deleting local archive",
			attrs:   []slog.Attr{slog.String("target", "docs"), slog.Int("size_kb", 42)},
			want:    "2024-06-15T14:30:45Z\tWARN\top-789\tdeleting local archive\ttarget=docs\tsize_kb=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &bcktHandler{w: &buf, opID: tt.opID, level: slog.LevelDebug}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestBcktHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &bcktHandler{w: &buf, opID: "op-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*bcktHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "docs/docs_20240101_000000.tar.gz"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=vault") {
		t.Errorf("expected pre-set attr component=vault, got: %q", got)
	}
	if !strings.Contains(got, "key=docs/docs_20240101_000000.tar.gz") {
		t.Errorf("expected record attr key, got: %q", got)
	}
}

func TestBcktHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := &bcktHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*bcktHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestBcktHandler_Enabled(t *testing.T) {
	tests := []struct {
		name  string
		min   slog.Level
		level slog.Level
		want  bool
	}{
		{name: "debug handler takes debug", min: slog.LevelDebug, level: slog.LevelDebug, want: true},
		{name: "debug handler takes error", min: slog.LevelDebug, level: slog.LevelError, want: true},
		{name: "info handler drops debug", min: slog.LevelInfo, level: slog.LevelDebug, want: false},
		{name: "info handler takes info", min: slog.LevelInfo, level: slog.LevelInfo, want: true},
		{name: "info handler takes warn", min: slog.LevelInfo, level: slog.LevelWarn, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &bcktHandler{level: tt.min}
			if got := h.Enabled(context.Background(), tt.level); got != tt.want {
				t.Errorf("Enabled(%v) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "test-op", false)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("newLogger() returned nil logger")
	}

	logger.Debug("hidden")
	logger.Info("shown", "target", "docs")

	data, err := os.ReadFile(filepath.Join(dir, "bckt.log"))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	got := string(data)
	if strings.Contains(got, "hidden") {
		t.Errorf("debug record written without verbose: %q", got)
	}
	if !strings.Contains(got, "\ttest-op\tshown\ttarget=docs") {
		t.Errorf("log = %q, want info record", got)
	}
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	l := cronLogger{l: slog.New(&bcktHandler{w: &buf, opID: "op-1", level: slog.LevelDebug})}

	l.Info("schedule", "entry", 1)
	l.Error(errors.New("boom"), "panic", "entry", 1)

	got := buf.String()
	if !strings.Contains(got, "DEBUG\top-1\tcron: schedule\tentry=1") {
		t.Errorf("info line missing: %q", got)
	}
	if !strings.Contains(got, "ERROR\top-1\tcron: panic\tentry=1\terror=boom") {
		t.Errorf("error line missing: %q", got)
	}
}
