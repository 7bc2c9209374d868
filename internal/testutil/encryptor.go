package testutil

import (
	"bckt-go/internal/bckt"
	"bckt-go/internal/encryption"
)

// NewTestEncryptor creates an encryptor that frames content with a header,
// so tests can tell encrypted uploads apart from plain ones.
func NewTestEncryptor() bckt.Encryptor {
	return encryption.NewTestEncryptor()
}

// NewNoneEncryptor creates the pass-through encryptor used when encryption is off.
func NewNoneEncryptor() bckt.Encryptor {
	return encryption.NewNoneEncryptor()
}
