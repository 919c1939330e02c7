// Package backup snapshots the notes database into a vault and restores it.
package backup

import (
	"errors"
	"io"
)

// ErrSnapshotNotFound is returned by a Vault for an unknown snapshot name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Vault stores database snapshots by name.
type Vault interface {
	// PutSnapshot stores size bytes read from r under name, replacing any
	// snapshot with the same name.
	PutSnapshot(name string, r io.Reader, size int64) error

	// GetSnapshot writes the named snapshot to w.
	// An unknown name is ErrSnapshotNotFound.
	GetSnapshot(name string, w io.Writer) error

	// ListSnapshots returns the stored snapshot names in ascending order.
	ListSnapshots() ([]string, error)

	// ValidateSetup verifies that the vault is reachable and writable.
	ValidateSetup() error
}

// Encryptor protects snapshots at rest. Encryption needs only the public
// key; decryption needs the passphrase that guards the private key.
type Encryptor interface {
	// Setup generates and stores a new key pair guarded by passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock opens the private key for the duration of a restore.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether a key pair exists.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// Snapshotter writes a consistent copy of a live database to a new file.
type Snapshotter interface {
	BackupTo(destPath string) error
}
