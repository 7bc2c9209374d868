package encryption

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bckt-go/internal/config"
)

func newAgeEncryptor(t *testing.T) (*AgeEncryptor, config.EncryptionConfig) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		Type:           "age",
		PublicKeyPath:  filepath.Join(dir, "keys", "bckt.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "bckt.key"),
	}
	return NewAgeEncryptor(cfg), cfg
}

// pushThroughPipe encrypts src the way a push streams an archive to the
// vault: the encryptor writes into a pipe while the consumer reads it.
func pushThroughPipe(t *testing.T, e *AgeEncryptor, src io.Reader) ([]byte, error) {
	t.Helper()
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(e.Encrypt(src, pw))
	}()
	data, err := io.ReadAll(pr)
	pr.Close()
	return data, err
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e, cfg := newAgeEncryptor(t)

	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup")
	}
	if err := e.Setup(""); err == nil {
		t.Error("Setup(\"\") expected error")
	}
	if err := e.Setup("correct horse"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup")
	}

	info, err := os.Stat(cfg.PrivateKeyPath)
	if err != nil {
		t.Fatalf("stat private key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("private key mode = %o, want 600", perm)
	}
	sealed, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(sealed, []byte("AGE-SECRET-KEY-")) {
		t.Error("private key stored in the clear")
	}

	rcpt, err := e.Recipient()
	if err != nil {
		t.Fatalf("Recipient() error = %v", err)
	}
	if !strings.HasPrefix(rcpt, "age1") {
		t.Errorf("Recipient() = %q, want an age1 recipient", rcpt)
	}

	// a fresh encryptor reads the recipient back from disk
	again, err := NewAgeEncryptor(cfg).Recipient()
	if err != nil || again != rcpt {
		t.Errorf("Recipient() from disk = %q, %v; want %q", again, err, rcpt)
	}
}

func TestAgeEncryptor_ArchiveStream(t *testing.T) {
	t.Parallel()
	e, cfg := newAgeEncryptor(t)
	if err := e.Setup("correct horse"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	// larger than age's 64 KiB chunk so the stream spans several chunks
	archive := make([]byte, 3*64*1024+17)
	if _, err := rand.Read(archive); err != nil {
		t.Fatal(err)
	}

	object, err := pushThroughPipe(t, e, bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("encrypting through pipe: %v", err)
	}
	if bytes.Contains(object, archive[:1024]) {
		t.Error("pushed object contains plaintext")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "docs_20260115_103000.tar.gz.age")
	dst := filepath.Join(dir, "docs_20260115_103000.tar.gz")
	if err := os.WriteFile(src, object, 0600); err != nil {
		t.Fatal(err)
	}

	// decrypting needs only the key files, as on a fresh host
	dc, err := NewAgeEncryptor(cfg).Unlock("correct horse")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := DecryptFile(dc, src, dst); err != nil {
		t.Fatalf("DecryptFile() error = %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, archive) {
		t.Errorf("restored archive differs: got %d bytes, want %d", len(got), len(archive))
	}
}

func TestAgeEncryptor_Failures(t *testing.T) {
	t.Parallel()

	t.Run("wrong passphrase", func(t *testing.T) {
		e, _ := newAgeEncryptor(t)
		if err := e.Setup("correct horse"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if _, err := e.Unlock("battery staple"); err == nil {
			t.Error("Unlock() with wrong passphrase expected error")
		}
	})

	t.Run("push before keys exist", func(t *testing.T) {
		e, _ := newAgeEncryptor(t)
		if _, err := pushThroughPipe(t, e, strings.NewReader("archive")); err == nil {
			t.Error("encrypting without a public key expected the reader to fail")
		}
		if _, err := e.Unlock("correct horse"); err == nil {
			t.Error("Unlock() without a private key expected error")
		}
	})

	t.Run("replaced keys cannot open older objects", func(t *testing.T) {
		e, _ := newAgeEncryptor(t)
		if err := e.Setup("first"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		old, err := pushThroughPipe(t, e, strings.NewReader("archive"))
		if err != nil {
			t.Fatal(err)
		}
		if err := e.Setup("second"); err != nil {
			t.Fatalf("second Setup() error = %v", err)
		}
		dc, err := e.Unlock("second")
		if err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
		if err := dc.Decrypt(bytes.NewReader(old), io.Discard); err == nil {
			t.Error("new identity opened an object sealed for the old recipient")
		}

		fresh, err := pushThroughPipe(t, e, strings.NewReader("archive"))
		if err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		if err := dc.Decrypt(bytes.NewReader(fresh), &out); err != nil || out.String() != "archive" {
			t.Errorf("Decrypt() = %q, %v", out.String(), err)
		}
	})
}
