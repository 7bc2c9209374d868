package encryption

import (
	"fmt"
	"os"

	"bckt-go/internal/bckt"
)

// DecryptFile decrypts an archive object downloaded from the vault at src
// into a new file at dst. An existing dst is never overwritten and a
// partial output is removed on failure.
func DecryptFile(dc bckt.DecryptionContext, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if err := dc.Decrypt(in, out); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}
