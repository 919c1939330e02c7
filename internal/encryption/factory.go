package encryption

import (
	"fmt"

	"notes-go/internal/backup"
	"notes-go/internal/config"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" returns a nil Encryptor: snapshots are stored unencrypted.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (backup.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("age encryption requires public_key_path and private_key_path")
		}
		return NewAgeEncryptor(cfg), nil
	case "none":
		return nil, nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
