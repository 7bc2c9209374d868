package testutil

import (
	"bckt-go/internal/bckt"
	"bckt-go/internal/vault"
)

// NewTestVault creates a new in-memory vault stamped by clock.
func NewTestVault(clock bckt.Clock) *vault.MemoryVault {
	v := vault.NewMemoryVault("test-vault")
	if clock != nil {
		v.SetClock(clock)
	}
	return v
}
