package vault

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"notes-go/internal/backup"
)

// FileSystemVault stores each snapshot as a file directly under root.
type FileSystemVault struct {
	root string
}

// NewFileSystemVault creates a vault rooted at root, creating the directory if needed.
func NewFileSystemVault(root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	return &FileSystemVault{root: root}, nil
}

// PutSnapshot writes the snapshot atomically (temp file + rename).
func (v *FileSystemVault) PutSnapshot(name string, r io.Reader, size int64) error {
	dest, err := v.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(v.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

func (v *FileSystemVault) GetSnapshot(name string, w io.Writer) error {
	src, err := v.path(name)
	if err != nil {
		return err
	}

	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, backup.ErrSnapshotNotFound)
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the regular files under root, skipping temp files.
func (v *FileSystemVault) ListSnapshots() ([]string, error) {
	entries, err := os.ReadDir(v.root)
	if err != nil {
		return nil, fmt.Errorf("reading vault directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// ValidateSetup verifies that root is a writable directory.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	probe, err := os.CreateTemp(v.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("vault root not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// path maps a snapshot name to a file under root. Names that would escape
// root are rejected.
func (v *FileSystemVault) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid snapshot name %q", name)
	}
	return filepath.Join(v.root, name), nil
}

// Compile-time check that FileSystemVault implements backup.Vault
var _ backup.Vault = (*FileSystemVault)(nil)
