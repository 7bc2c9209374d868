package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bckt-go/internal/bckt"
	"bckt-go/internal/model"
)

func testSummary() *bckt.RunSummary {
	start := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	return &bckt.RunSummary{
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Results: []bckt.TargetResult{
			{Target: "docs", Outcome: model.OutcomeArchiveCreated, Reason: model.ReasonOK, SizeKB: 2048, Pushed: true, AgedDeleted: 2},
			{Target: "photos", Outcome: model.OutcomeInsufficientSpace, Reason: model.ReasonDiskFull, Error: "disk full"},
		},
		Counts: map[model.Outcome]int{
			model.OutcomeArchiveCreated:    1,
			model.OutcomeInsufficientSpace: 1,
		},
		Pushed:   1,
		Failures: 1,
	}
}

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder()
	r.Observe(testSummary())

	assert.Equal(t, 90.0, promtestutil.ToFloat64(r.runDuration))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(r.runPushed))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(r.runFailures))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(r.outcomes.WithLabelValues("archive_created")))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(r.outcomes.WithLabelValues("no_new_files")))
	assert.Equal(t, 2048.0*1024, promtestutil.ToFloat64(r.archiveSize.WithLabelValues("docs")))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(r.agedDeleted.WithLabelValues("docs")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(r.targetFailures.WithLabelValues("photos", "archive")))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(r.targetFailures.WithLabelValues("photos", "push")))
}

func TestRecorder_ObserveResets(t *testing.T) {
	r := NewRecorder()
	r.Observe(testSummary())

	second := testSummary()
	second.Results = second.Results[:1]
	r.Observe(second)

	assert.Equal(t, 1, promtestutil.CollectAndCount(r.archiveSize), "stale target series should be dropped")
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe(testSummary())

	path := filepath.Join(t.TempDir(), "textfile", "bckt.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "bckt_run_pushed 1"), out)
	assert.True(t, strings.Contains(out, `bckt_target_outcome{outcome="archive_created",reason="ok",target="docs"} 1`), out)
}
