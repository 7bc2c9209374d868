package bckt

import "io"

// Encryptor transforms archive streams before they leave the host.
// Encryption uses the public key only, so runs never need a passphrase.
type Encryptor interface {
	// Setup performs one-time key generation. Called during `bckt config keys`.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if the encryptor has the keys it needs.
	IsConfigured() bool

	// Enabled reports whether pushed archives are transformed at all.
	Enabled() bool
}

// DecryptionContext holds an unlocked private key in memory for the duration
// of a decrypt session. The unlocked key is never written to disk.
type DecryptionContext interface {
	// Decrypt decrypts data read from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error
}
