package vault

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "vault")

		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			t.Errorf("root not created: %v", err)
		}
		if v.Name() != "test" {
			t.Errorf("Name() = %q, want %q", v.Name(), "test")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		if _, err := NewFileSystemVault("test", t.TempDir()); err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})
}

func TestFileSystemVault_Put(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		data    string
		size    int64
		wantErr bool
	}{
		{name: "nested key", key: "docs/docs_20260301_120000.tar.gz", data: "hello world", size: 11},
		{name: "unknown size", key: "docs/docs_20260302_120000.tar.gz", data: "streamed", size: -1},
		{name: "size mismatch", key: "docs/mismatch.tar.gz", data: "short", size: 100, wantErr: true},
		{name: "escaping key", key: "../outside.tar.gz", data: "x", size: 1, wantErr: true},
		{name: "absolute key", key: "/etc/passwd", data: "x", size: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			v, err := NewFileSystemVault("test", root)
			if err != nil {
				t.Fatalf("NewFileSystemVault() error = %v", err)
			}

			err = v.Put(ctx, tt.key, strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Put() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				entries, _ := os.ReadDir(filepath.Join(root, "docs"))
				for _, e := range entries {
					if strings.HasPrefix(e.Name(), ".tmp-") {
						t.Errorf("temp file left behind: %s", e.Name())
					}
				}
				return
			}

			got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(tt.key)))
			if err != nil {
				t.Fatalf("reading stored object: %v", err)
			}
			if string(got) != tt.data {
				t.Errorf("stored content = %q, want %q", got, tt.data)
			}
		})
	}
}

func TestFileSystemVault_List(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	v, err := NewFileSystemVault("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	for _, key := range []string{"docs/b.tar.gz", "docs/a.tar.gz", "photos/p.tar.gz", "legacy_20250101_000000.tar.gz"} {
		if err := v.Put(ctx, key, strings.NewReader("data"), 4); err != nil {
			t.Fatalf("Put(%q) error = %v", key, err)
		}
	}
	// in-flight uploads are not objects
	if err := os.WriteFile(filepath.Join(root, "docs", ".tmp-123"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(filepath.Join(root, "docs", "a.tar.gz"), old, old); err != nil {
		t.Fatal(err)
	}

	objs, err := v.List(ctx, "docs/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("List(docs/) = %d objects, want 2: %+v", len(objs), objs)
	}
	if objs[0].Key != "docs/a.tar.gz" || objs[1].Key != "docs/b.tar.gz" {
		t.Errorf("keys = %q, %q", objs[0].Key, objs[1].Key)
	}
	if !objs[0].LastModified.Equal(old) {
		t.Errorf("LastModified = %v, want %v", objs[0].LastModified, old)
	}
	if objs[0].Size != 4 {
		t.Errorf("Size = %d, want 4", objs[0].Size)
	}

	all, err := v.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("List(\"\") = %d objects, want 4", len(all))
	}
}

func TestFileSystemVault_Delete(t *testing.T) {
	ctx := context.Background()
	v, err := NewFileSystemVault("test", t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}
	if err := v.Put(ctx, "docs/a.tar.gz", strings.NewReader("a"), 1); err != nil {
		t.Fatal(err)
	}

	results, err := v.Delete(ctx, []string{"docs/a.tar.gz", "docs/missing.tar.gz"})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if results[0].Err != nil {
		t.Errorf("Delete(a) error = %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("Delete(missing) expected error")
	}

	objs, _ := v.List(ctx, "")
	if len(objs) != 0 {
		t.Errorf("List() after delete = %+v, want empty", objs)
	}
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	v, err := NewFileSystemVault("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	if err := v.ValidateSetup(ctx); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}
	if err := v.ValidateSetup(ctx); err == nil {
		t.Error("ValidateSetup() expected error after root removed")
	}
}
