package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - NOTES_CONFIG_PATH: config file location (default: ~/.config/notes.toml)
//   - NOTES_HOME: base directory for notes data (default: ~/.local/share/notes)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"env_file":    filepath.Join(baseDir, ".env"),
	}, nil
}

// LoadEnv loads KEY=value files into the process environment. Missing files
// are skipped and variables that are already set are never overridden.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// getConfigPath returns the config file path, checking NOTES_CONFIG_PATH env var first,
// then falling back to the default ~/.config/notes.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("NOTES_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "notes.toml"), nil
}

// getBaseDir returns the base directory for notes data, checking NOTES_HOME env var first,
// then falling back to the XDG default ~/.local/share/notes.
func getBaseDir() (string, error) {
	if path := os.Getenv("NOTES_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "notes"), nil
}
