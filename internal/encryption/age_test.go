package encryption

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"notes-go/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	return NewAgeEncryptor(config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "keys", "notes.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "notes.key"),
	})
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()

	t.Run("configures keys", func(t *testing.T) {
		t.Parallel()
		e := newTestAgeEncryptor(t)
		if e.IsConfigured() {
			t.Error("IsConfigured() = true before Setup, want false")
		}
		if err := e.Setup("test-passphrase"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if !e.IsConfigured() {
			t.Error("IsConfigured() = false after Setup, want true")
		}
	})

	t.Run("refuses to replace keys", func(t *testing.T) {
		t.Parallel()
		e := newTestAgeEncryptor(t)
		if err := e.Setup("first"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if err := e.Setup("second"); !errors.Is(err, ErrKeysExist) {
			t.Errorf("second Setup() error = %v, want ErrKeysExist", err)
		}
	})

	t.Run("rejects empty passphrase", func(t *testing.T) {
		t.Parallel()
		e := newTestAgeEncryptor(t)
		if err := e.Setup(""); err == nil {
			t.Error("Setup(\"\") expected error")
		}
		if e.IsConfigured() {
			t.Error("IsConfigured() = true after failed Setup")
		}
	})
}

func TestAgeEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	passphrase := "test-passphrase"
	e := newTestAgeEncryptor(t)
	if err := e.Setup(passphrase); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "sqlite header", input: []byte("SQLite format 3\x00")},
		{name: "empty", input: []byte{}},
		{name: "large data", input: bytes.Repeat([]byte("page"), 64*1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sealed bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &sealed); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(tt.input) > 0 && bytes.Contains(sealed.Bytes(), tt.input) {
				t.Error("ciphertext contains the plaintext")
			}

			dc, err := e.Unlock(passphrase)
			if err != nil {
				t.Fatalf("Unlock() error = %v", err)
			}

			var plain bytes.Buffer
			if err := dc.Decrypt(bytes.NewReader(sealed.Bytes()), &plain); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(plain.Bytes(), tt.input) {
				t.Errorf("round-trip failed: got %d bytes, want %d bytes", plain.Len(), len(tt.input))
			}
		})
	}
}

func TestAgeEncryptor_UnlockWrongPassphrase(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Setup("correct-passphrase"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	if _, err := e.Unlock("wrong-passphrase"); err == nil {
		t.Error("Unlock() with wrong passphrase should return error")
	}
}

func TestAgeEncryptor_BeforeSetup(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)

	var buf bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("data")), &buf); err == nil {
		t.Error("Encrypt() before Setup should return error")
	}
	if _, err := e.Unlock("passphrase"); err == nil {
		t.Error("Unlock() before Setup should return error")
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	dir := t.TempDir()
	keys := config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "notes.pub"),
		PrivateKeyPath: filepath.Join(dir, "notes.key"),
	}

	tests := []struct {
		name    string
		cfg     config.EncryptionConfig
		wantNil bool
		wantErr bool
	}{
		{name: "age", cfg: config.EncryptionConfig{Type: "age", PublicKeyPath: keys.PublicKeyPath, PrivateKeyPath: keys.PrivateKeyPath}},
		{name: "default is age", cfg: keys},
		{name: "age without paths", cfg: config.EncryptionConfig{Type: "age"}, wantNil: true, wantErr: true},
		{name: "none", cfg: config.EncryptionConfig{Type: "none"}, wantNil: true},
		{name: "test", cfg: config.EncryptionConfig{Type: "test"}},
		{name: "unknown", cfg: config.EncryptionConfig{Type: "rot13"}, wantNil: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEncryptorFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEncryptorFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (got == nil) != tt.wantNil {
				t.Errorf("NewEncryptorFromConfig() = %v, wantNil %v", got, tt.wantNil)
			}
		})
	}
}
