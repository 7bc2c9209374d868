package encryption

import (
	"fmt"
	"io"

	"bckt-go/internal/bckt"
)

// NoneEncryptor leaves archives as they are. Pushes upload the local file
// directly with its known size.
type NoneEncryptor struct{}

var _ bckt.Encryptor = (*NoneEncryptor)(nil)

// NewNoneEncryptor creates a pass-through encryptor.
func NewNoneEncryptor() *NoneEncryptor {
	return &NoneEncryptor{}
}

func (e *NoneEncryptor) Setup(string) error {
	return fmt.Errorf("encryption is disabled; set encryption.type = \"age\" first")
}

func (e *NoneEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}

func (e *NoneEncryptor) Unlock(string) (bckt.DecryptionContext, error) {
	return passthroughContext{}, nil
}

func (e *NoneEncryptor) IsConfigured() bool { return true }

func (e *NoneEncryptor) Enabled() bool { return false }

type passthroughContext struct{}

func (passthroughContext) Decrypt(r io.Reader, w io.Writer) error {
	_, err := io.Copy(w, r)
	return err
}
