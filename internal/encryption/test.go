package encryption

import (
	"bytes"
	"fmt"
	"io"

	"notes-go/internal/backup"
)

// testHeader marks data sealed by TestEncryptor.
var testHeader = []byte("NOTESENC")

// TestEncryptor is a deterministic, reversible stand-in for AgeEncryptor.
// It prepends testHeader on Encrypt and strips it on Decrypt. Unlock accepts
// only the passphrase given to Setup, so wrong-passphrase paths can be tested.
type TestEncryptor struct {
	passphrase string
	configured bool
}

var _ backup.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a TestEncryptor that is already configured with
// an empty passphrase.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{configured: true}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	e.configured = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (backup.DecryptionContext, error) {
	if passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return e.configured
}

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ backup.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
