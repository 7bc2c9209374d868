package archiver

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"bckt-go/internal/bckt"
	"bckt-go/internal/config"
)

// fakeTar writes a shell script standing in for tar. It logs its arguments
// and exits with createStatus on create and verifyStatus on list.
func fakeTar(t *testing.T, createStatus, verifyStatus int, stderr string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "args.log")
	script := "#!/bin/sh\n" +
		"echo \"$@\" >> " + logPath + "\n" +
		"case \"$*\" in\n" +
		"  *-czf*) echo '" + stderr + "' >&2; exit " + strconv.Itoa(createStatus) + " ;;\n" +
		"  *-tzf*) exit " + strconv.Itoa(verifyStatus) + " ;;\n" +
		"esac\n" +
		"exit 0\n"
	path := filepath.Join(dir, "tar")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path, logPath
}

func TestTarArchiver_CreateArgs(t *testing.T) {
	a := NewTarArchiver(config.ArchiverConfig{
		TarPath:           "tar",
		ExcludeVCSIgnores: true,
		OneFileSystem:     true,
	}, nil)

	got := a.createArgs(bckt.ArchiveRequest{
		SourcePath: "/home/me/docs/",
		Excludes:   []string{"*.log", "cache"},
		Dest:       "/var/bckt/docs_20260101_000000.tar.gz",
	})
	want := []string{
		"--exclude", "*.log", "--exclude", "cache",
		"--exclude-vcs-ignores", "--one-file-system",
		"-czf", "/var/bckt/docs_20260101_000000.tar.gz", "-C", "/home/me", "docs",
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("createArgs() = %q, want %q", got, want)
	}
}

func TestTarArchiver_ExitStatus(t *testing.T) {
	tests := []struct {
		name         string
		createStatus int
		verifyStatus int
		stderr       string
		wantStatus   int
		wantVerify   bool
	}{
		{name: "success", wantStatus: 0, wantVerify: true},
		{name: "files changed while reading", createStatus: 1, stderr: "file changed as we read it", wantStatus: 1},
		{name: "disk full", createStatus: 2, stderr: "tar: docs: Cannot write: No space left on device", wantStatus: 2},
		{name: "verify fails", verifyStatus: 2, wantStatus: ExitVerifyFailed, wantVerify: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tarPath, logPath := fakeTar(t, tt.createStatus, tt.verifyStatus, tt.stderr)
			a := NewTarArchiver(config.ArchiverConfig{TarPath: tarPath, Timeout: config.Duration{Duration: time.Minute}}, nil)

			dest := filepath.Join(t.TempDir(), "docs_20260101_000000.tar.gz")
			res, err := a.Create(context.Background(), bckt.ArchiveRequest{SourcePath: t.TempDir(), Dest: dest})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if res.ExitStatus != tt.wantStatus {
				t.Errorf("ExitStatus = %d, want %d", res.ExitStatus, tt.wantStatus)
			}
			if tt.stderr != "" && !strings.Contains(res.Stderr, tt.stderr) {
				t.Errorf("Stderr = %q, want it to contain %q", res.Stderr, tt.stderr)
			}

			log, err := os.ReadFile(logPath)
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Contains(string(log), "-tzf"); got != tt.wantVerify {
				t.Errorf("verify ran = %v, want %v", got, tt.wantVerify)
			}
		})
	}
}

func TestTarArchiver_MissingBinary(t *testing.T) {
	a := NewTarArchiver(config.ArchiverConfig{TarPath: filepath.Join(t.TempDir(), "no-tar")}, nil)
	_, err := a.Create(context.Background(), bckt.ArchiveRequest{SourcePath: t.TempDir(), Dest: "x.tar.gz"})
	if err == nil {
		t.Error("Create() with missing binary expected error")
	}
}

func TestTarArchiver_RoundTrip(t *testing.T) {
	tarPath, err := exec.LookPath("tar")
	if err != nil {
		t.Skip("tar not installed")
	}

	src := filepath.Join(t.TempDir(), "docs")
	for name, content := range map[string]string{
		"a.txt":       "alpha",
		"sub/b.txt":   "beta",
		"sub/x.log":   "noise",
		"cache/c.bin": "cached",
	} {
		p := filepath.Join(src, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	a := NewTarArchiver(config.ArchiverConfig{TarPath: tarPath}, nil)
	dest := filepath.Join(t.TempDir(), "docs_20260101_000000.tar.gz")
	res, err := a.Create(context.Background(), bckt.ArchiveRequest{
		SourcePath: src,
		Excludes:   []string{"*.log", "cache"},
		Dest:       dest,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.ExitStatus != 0 {
		t.Fatalf("ExitStatus = %d, stderr = %s", res.ExitStatus, res.Stderr)
	}
	if res.Size == 0 {
		t.Error("Size = 0, want archive size")
	}

	out := t.TempDir()
	if err := a.Extract(context.Background(), dest, out); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if b, err := os.ReadFile(filepath.Join(out, "docs", "sub", "b.txt")); err != nil || string(b) != "beta" {
		t.Errorf("restored sub/b.txt = %q, %v", b, err)
	}
	for _, excluded := range []string{"sub/x.log", "cache/c.bin"} {
		if _, err := os.Stat(filepath.Join(out, "docs", excluded)); err == nil {
			t.Errorf("%s was archived despite exclude", excluded)
		}
	}
}
