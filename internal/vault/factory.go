package vault

import (
	"context"
	"fmt"

	"notes-go/internal/backup"
	"notes-go/internal/config"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (backup.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(), nil
	case "s3":
		v, err := NewS3VaultFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_root to be set")
		}
		v, err := NewFileSystemVault(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
