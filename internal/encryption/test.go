package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"bckt-go/internal/bckt"
)

// frameHeader marks an archive stream framed by TestEncryptor.
var frameHeader = []byte("BCKTENC\x00")

// TestEncryptor frames archive streams with a fixed header instead of
// encrypting them. Pushed objects then differ from the local archive and
// can be checked byte for byte, with no keys involved.
type TestEncryptor struct{}

var _ bckt.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(string) error { return nil }

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(frameHeader); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("framing archive: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(string) (bckt.DecryptionContext, error) {
	return frameReader{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

func (e *TestEncryptor) Enabled() bool { return true }

// frameReader strips the header written by TestEncryptor.
type frameReader struct{}

func (frameReader) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(frameHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading frame header: %w", err)
	}
	if !bytes.Equal(header, frameHeader) {
		return errors.New("archive is not framed by the test encryptor")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("unframing archive: %w", err)
	}
	return nil
}
