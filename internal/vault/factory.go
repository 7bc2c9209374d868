package vault

import (
	"context"
	"fmt"

	"bckt-go/internal/bckt"
	"bckt-go/internal/config"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
// An unnamed vault is named after its type.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (bckt.Vault, error) {
	if cfg.Name == "" && cfg.Type != "s3" {
		cfg.Name = cfg.Type
	}
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
		}
		v, err := NewS3Vault(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		v, err := NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
