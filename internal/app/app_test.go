package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bckt-go/internal/bckt"
	"bckt-go/internal/config"
	"bckt-go/internal/encryption"
	"bckt-go/internal/model"
)

// newTestConfig returns a config rooted in a temp dir with an initialized
// sqlite database, a filesystem vault and an in-memory stats cache.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.NewConfig("host-1", t.TempDir())
	cfg.Cache = config.CacheConfig{Type: "memory", TTL: config.Duration{Duration: time.Minute}}
	cfg.Metrics.TextfilePath = filepath.Join(cfg.BaseDir, "metrics", "bckt.prom")

	a, err := NewApp(context.Background(), cfg, "InitDatabase", "", Options{SkipMigrationCheck: true})
	require.NoError(t, err)
	require.NoError(t, a.InitDatabase())
	require.NoError(t, a.Close())
	return cfg
}

func openApp(t *testing.T, cfg *config.Config, operation string) *App {
	t.Helper()
	a, err := NewApp(context.Background(), cfg, operation, "", Options{})
	require.NoError(t, err)
	return a
}

func TestNewApp_RequiresMigratedDatabase(t *testing.T) {
	cfg := config.NewConfig("host-1", t.TempDir())
	cfg.Cache = config.CacheConfig{Type: "memory"}

	a, err := NewApp(context.Background(), cfg, "ListTargets", "", Options{})
	if err == nil {
		a.Close()
		t.Fatal("NewApp() expected error for an uninitialized database")
	}
	assert.Contains(t, err.Error(), "bckt db init")
}

func TestApp_InitDatabaseRecordsRun(t *testing.T) {
	cfg := newTestConfig(t)

	a := openApp(t, cfg, "History")
	defer a.Close()

	runs, err := a.GetHistory(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "InitDatabase", runs[0].Command)
	assert.Equal(t, StatusSuccess, runs[0].Status)
	assert.True(t, runs[0].FinishedAt.Valid)
}

func TestApp_AddTarget(t *testing.T) {
	cfg := newTestConfig(t)
	src := t.TempDir()

	a := openApp(t, cfg, "AddTarget")
	target, err := a.AddTarget(bckt.NewTarget{Name: "docs", Path: src})
	require.NoError(t, err)
	assert.Equal(t, "docs", target.Name)
	assert.Equal(t, model.FrequencyDaily, target.Frequency)
	require.NoError(t, a.Close())

	a = openApp(t, cfg, "AddTarget")
	_, err = a.AddTarget(bckt.NewTarget{Name: "docs", Path: src})
	assert.True(t, errors.Is(err, bckt.ErrTargetExists), "AddTarget() error = %v", err)
	require.NoError(t, a.Close())

	a = openApp(t, cfg, "History")
	defer a.Close()
	runs, err := a.GetHistory(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	byStatus := map[string]int{}
	for _, r := range runs {
		if r.Command == "AddTarget" {
			byStatus[r.Status]++
		}
	}
	assert.Equal(t, map[string]int{StatusSuccess: 1, StatusError: 1}, byStatus)
}

func TestApp_PauseAndStatus(t *testing.T) {
	cfg := newTestConfig(t)
	src := t.TempDir()
	ctx := context.Background()

	a := openApp(t, cfg, "AddTarget")
	_, err := a.AddTarget(bckt.NewTarget{Name: "docs", Path: src})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a = openApp(t, cfg, "SetTargetActive")
	paused, err := a.SetTargetActive("docs", false)
	require.NoError(t, err)
	assert.False(t, paused.IsActive)
	require.NoError(t, a.Close())

	a = openApp(t, cfg, "TargetStatuses")
	defer a.Close()
	statuses, err := a.TargetStatuses(ctx, "", true)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Target.IsActive)
	assert.Equal(t, 0, statuses[0].ArchiveCount)
	assert.Nil(t, statuses[0].Changes, "paused targets are not scanned")
}

func TestApp_RunWritesMetrics(t *testing.T) {
	cfg := newTestConfig(t)
	ctx := context.Background()

	a := openApp(t, cfg, "AddTarget")
	_, err := a.AddTarget(bckt.NewTarget{Name: "docs", Path: t.TempDir()})
	require.NoError(t, err)
	_, err = a.SetTargetActive("docs", false)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a = openApp(t, cfg, "Run")
	summary, err := a.Run(ctx, "", bckt.RunOptions{})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, model.OutcomeNotActive, summary.Results[0].Outcome)
	require.NoError(t, a.Close())

	data, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `bckt_run_targets{outcome="not_active"} 1`)

	a = openApp(t, cfg, "History")
	defer a.Close()
	runs, err := a.GetHistory(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Run", runs[0].Command)
	assert.Equal(t, StatusSuccess, runs[0].Status)
	assert.Contains(t, runs[0].SummaryJson, `"outcome":"not_active"`)
}

func TestApp_DryRunSkipsMetrics(t *testing.T) {
	cfg := newTestConfig(t)

	a := openApp(t, cfg, "Run")
	defer a.Close()

	_, err := a.Run(context.Background(), "", bckt.RunOptions{DryRun: true})
	require.NoError(t, err)

	_, err = os.Stat(cfg.Metrics.TextfilePath)
	assert.True(t, os.IsNotExist(err), "dry run wrote metrics: %v", err)
}

func TestApp_RunUnknownTarget(t *testing.T) {
	cfg := newTestConfig(t)

	a := openApp(t, cfg, "Run")
	_, err := a.Run(context.Background(), "missing", bckt.RunOptions{})
	assert.True(t, errors.Is(err, bckt.ErrTargetNotFound), "Run() error = %v", err)
	require.NoError(t, a.Close())

	a = openApp(t, cfg, "History")
	defer a.Close()
	runs, err := a.GetHistory(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusError, runs[0].Status)
	assert.Contains(t, runs[0].SummaryJson, "target not found")
}

func TestApp_ValidateVault(t *testing.T) {
	cfg := newTestConfig(t)

	a := openApp(t, cfg, "ValidateVault")
	defer a.Close()
	assert.NoError(t, a.ValidateVault(context.Background()))
}

func TestApp_Schedule(t *testing.T) {
	cfg := newTestConfig(t)

	t.Run("invalid spec", func(t *testing.T) {
		a := openApp(t, cfg, "Schedule")
		defer a.Close()

		err := a.Schedule(context.Background(), "not a cron spec", bckt.RunOptions{})
		assert.Error(t, err)
	})

	t.Run("stops when context is done", func(t *testing.T) {
		a := openApp(t, cfg, "Schedule")
		defer a.Close()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- a.Schedule(ctx, "@hourly", bckt.RunOptions{}) }()

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Schedule() did not return after cancel")
		}
	})
}

func TestDecryptArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "docs_20260115_103000.tar.gz.enc")
	dst := filepath.Join(dir, "docs_20260115_103000.tar.gz")

	var buf bytes.Buffer
	require.NoError(t, encryption.NewTestEncryptor().Encrypt(strings.NewReader("archive bytes"), &buf))
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0600))

	cfg := config.EncryptionConfig{Type: "test"}
	require.NoError(t, DecryptArchive(cfg, src, dst, "secret"))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(got))

	t.Run("refuses to overwrite", func(t *testing.T) {
		assert.Error(t, DecryptArchive(cfg, src, dst, "secret"))
	})

	t.Run("disabled encryption", func(t *testing.T) {
		err := DecryptArchive(config.EncryptionConfig{Type: "none"}, src, filepath.Join(dir, "other"), "")
		assert.Error(t, err)
	})
}

func TestSetupKeys(t *testing.T) {
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "keys", "bckt.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "bckt.key"),
	}

	recipient, err := SetupKeys(cfg, "correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(recipient, "age1"), recipient)
	assert.FileExists(t, cfg.PublicKeyPath)
	assert.FileExists(t, cfg.PrivateKeyPath)

	_, err = SetupKeys(config.EncryptionConfig{Type: "none"}, "x")
	assert.Error(t, err)
}
