package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notes-go/internal/notes"
)

const (
	namePrefix   = "notes-"
	plainSuffix  = ".db"
	sealedSuffix = ".db.age"
	stampLayout  = "20060102T150405Z"
)

// Service takes and restores snapshots of the notes database.
type Service struct {
	source    Snapshotter
	vault     Vault
	encryptor Encryptor // nil stores snapshots in plaintext
	clock     notes.Clock
	logger    notes.Logger
}

// NewService creates a backup Service. encryptor may be nil.
func NewService(source Snapshotter, vault Vault, encryptor Encryptor, clock notes.Clock, logger notes.Logger) *Service {
	return &Service{
		source:    source,
		vault:     vault,
		encryptor: encryptor,
		clock:     clock,
		logger:    logger,
	}
}

// SnapshotName returns the vault name for a snapshot taken at t.
func SnapshotName(t time.Time, encrypted bool) string {
	suffix := plainSuffix
	if encrypted {
		suffix = sealedSuffix
	}
	return namePrefix + t.UTC().Format(stampLayout) + suffix
}

// IsSnapshotName reports whether name was produced by SnapshotName.
func IsSnapshotName(name string) bool {
	if !strings.HasPrefix(name, namePrefix) {
		return false
	}
	stamp := strings.TrimPrefix(name, namePrefix)
	switch {
	case strings.HasSuffix(stamp, sealedSuffix):
		stamp = strings.TrimSuffix(stamp, sealedSuffix)
	case strings.HasSuffix(stamp, plainSuffix):
		stamp = strings.TrimSuffix(stamp, plainSuffix)
	default:
		return false
	}
	_, err := time.Parse(stampLayout, stamp)
	return err == nil
}

// IsSealed reports whether name denotes an encrypted snapshot.
func IsSealed(name string) bool {
	return strings.HasSuffix(name, sealedSuffix)
}

// Backup snapshots the database, encrypts it when an encryptor is set and
// uploads it. It returns the snapshot name.
func (s *Service) Backup() (string, error) {
	if s.encryptor != nil && !s.encryptor.IsConfigured() {
		return "", fmt.Errorf("encryption keys are not set up (run `notes keys init`)")
	}

	tmpDir, err := os.MkdirTemp("", "notes-backup-*")
	if err != nil {
		return "", fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, "snapshot.db")
	if err := s.source.BackupTo(snapshot); err != nil {
		return "", err
	}

	upload := snapshot
	if s.encryptor != nil {
		upload = snapshot + ".age"
		if err := s.encryptFile(snapshot, upload); err != nil {
			return "", err
		}
	}

	name := SnapshotName(s.clock.Now(), s.encryptor != nil)
	if err := s.putFile(name, upload); err != nil {
		return "", err
	}

	s.logger.Info("database backed up", "snapshot", name)
	return name, nil
}

// List returns the names of all snapshots in the vault, oldest first.
func (s *Service) List() ([]string, error) {
	names, err := s.vault.ListSnapshots()
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		if IsSnapshotName(n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Restore downloads the named snapshot, decrypting it if needed, and writes
// the database to dest. dest must not exist.
func (s *Service) Restore(name, passphrase, dest string) error {
	if !IsSnapshotName(name) {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("restore destination %s already exists", dest)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking restore destination: %w", err)
	}

	sealed := IsSealed(name)
	var dc DecryptionContext
	if sealed {
		if s.encryptor == nil {
			return fmt.Errorf("snapshot %s is encrypted but no encryptor is configured", name)
		}
		var err error
		if dc, err = s.encryptor.Unlock(passphrase); err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return fmt.Errorf("creating restore directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".restore-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := s.fetch(name, dc, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("moving restored database into place: %w", err)
	}

	s.logger.Info("database restored", "snapshot", name, "dest", dest)
	return nil
}

// fetch streams the snapshot into w, through dc when it is set.
func (s *Service) fetch(name string, dc DecryptionContext, w io.Writer) error {
	if dc == nil {
		if err := s.vault.GetSnapshot(name, w); err != nil {
			return fmt.Errorf("downloading snapshot: %w", err)
		}
		return nil
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	go func() {
		pw.CloseWithError(s.vault.GetSnapshot(name, pw))
	}()
	if err := dc.Decrypt(pr, w); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("decrypting snapshot: %w", err)
	}
	return nil
}

func (s *Service) encryptFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating encrypted snapshot: %w", err)
	}
	if err := s.encryptor.Encrypt(in, out); err != nil {
		out.Close()
		return fmt.Errorf("encrypting snapshot: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing encrypted snapshot: %w", err)
	}
	return nil
}

func (s *Service) putFile(name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}
	if err := s.vault.PutSnapshot(name, f, info.Size()); err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}
	return nil
}
