package testutil

import (
	"notes-go/internal/encryption"
)

// NewTestEncryptor creates a deterministic encryptor whose Unlock accepts passphrase.
func NewTestEncryptor(passphrase string) *encryption.TestEncryptor {
	e := encryption.NewTestEncryptor()
	e.Setup(passphrase)
	return e
}
