package archiver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"bckt-go/internal/bckt"
	"bckt-go/internal/config"
)

// ExitVerifyFailed is reported when tar exited cleanly but the archive does not list.
const ExitVerifyFailed = 128

// TarArchiver runs the system tar binary to create gzip-compressed archives.
type TarArchiver struct {
	tarPath           string
	timeout           time.Duration
	excludeVCSIgnores bool
	oneFileSystem     bool
	logger            bckt.Logger
}

// NewTarArchiver creates a TarArchiver from configuration.
func NewTarArchiver(cfg config.ArchiverConfig, logger bckt.Logger) *TarArchiver {
	if logger == nil {
		logger = bckt.NewNopLogger()
	}
	return &TarArchiver{
		tarPath:           cfg.TarPath,
		timeout:           cfg.Timeout.Duration,
		excludeVCSIgnores: cfg.ExcludeVCSIgnores,
		oneFileSystem:     cfg.OneFileSystem,
		logger:            logger,
	}
}

// createArgs builds the tar command line. The source is archived relative to
// its parent so the archive holds a single top-level entry.
func (a *TarArchiver) createArgs(req bckt.ArchiveRequest) []string {
	var args []string
	for _, p := range req.Excludes {
		args = append(args, "--exclude", p)
	}
	if a.excludeVCSIgnores {
		args = append(args, "--exclude-vcs-ignores")
	}
	if a.oneFileSystem {
		args = append(args, "--one-file-system")
	}
	src := filepath.Clean(req.SourcePath)
	return append(args, "-czf", req.Dest, "-C", filepath.Dir(src), filepath.Base(src))
}

// Create archives req.SourcePath into req.Dest and lists the result to verify it.
func (a *TarArchiver) Create(ctx context.Context, req bckt.ArchiveRequest) (*bckt.ArchiveResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	args := a.createArgs(req)
	a.logger.Info("running archiver", "cmd", a.tarPath, "args", strings.Join(args, " "))

	status, stderr, err := a.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	res := &bckt.ArchiveResult{Path: req.Dest, ExitStatus: status, Stderr: stderr}
	if status != 0 {
		return res, nil
	}

	vstatus, vstderr, err := a.run(ctx, "-tzf", req.Dest)
	if err != nil {
		return nil, err
	}
	if vstatus != 0 {
		res.ExitStatus = ExitVerifyFailed
		res.Stderr = strings.TrimSpace(stderr + "\n" + vstderr)
		return res, nil
	}

	if info, err := os.Stat(req.Dest); err == nil {
		res.Size = info.Size()
	}
	return res, nil
}

// Extract unpacks archivePath into destDir.
func (a *TarArchiver) Extract(ctx context.Context, archivePath, destDir string) error {
	status, stderr, err := a.run(ctx, "-xzf", archivePath, "-C", destDir)
	if err != nil {
		return err
	}
	if status != 0 {
		return fmt.Errorf("tar exited with status %d: %s", status, stderr)
	}
	return nil
}

// run executes tar and returns its exit status and stderr. The error is
// reserved for failures to start it or a cancelled context.
func (a *TarArchiver) run(ctx context.Context, args ...string) (int, string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.tarPath, args...)
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, "", fmt.Errorf("running %s: %w", a.tarPath, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), stderr.String(), nil
	}
	if err != nil {
		return 0, "", fmt.Errorf("running %s: %w", a.tarPath, err)
	}
	return 0, stderr.String(), nil
}

var _ bckt.Archiver = (*TarArchiver)(nil)
