package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"notes-go/internal/database/migrations"
	"notes-go/internal/model"
	"notes-go/internal/notes"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath selects an in-memory database.
const MemoryPath = ":memory:"

// SQLiteDatabase implements notes.Database on SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path (or MemoryPath).
// The schema is not migrated; call MigrateUp or CheckMigrations.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// OpenConnection opens a SQLite connection pool configured for the notes schema.
// Foreign keys are enabled through the DSN so every pooled connection has them.
func OpenConnection(path string) (*sql.DB, error) {
	dsn := path + "?_foreign_keys=1&_busy_timeout=5000"
	if path != MemoryPath {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to ":memory:" is a separate database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// User operations

func (s *SQLiteDatabase) CreateUser(user *model.User) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO users (id, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, string(user.Role), user.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return fmt.Errorf("email %s: %w", user.Email, notes.ErrConflict)
		}
		return fmt.Errorf("inserting user: %w", classify(err))
	}
	return nil
}

func (s *SQLiteDatabase) FindUserByID(id string) (*model.User, error) {
	return s.findUser(`SELECT id, email, password_hash, role, created_at FROM users WHERE id = ?`, id)
}

func (s *SQLiteDatabase) FindUserByEmail(email string) (*model.User, error) {
	return s.findUser(`SELECT id, email, password_hash, role, created_at FROM users WHERE email = ?`, email)
}

func (s *SQLiteDatabase) findUser(query string, arg string) (*model.User, error) {
	var u model.User
	var role string
	err := s.db.QueryRowContext(context.Background(), query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding user: %w", classify(err))
	}
	u.Role = model.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// Folder operations

const folderColumns = `id, owner_id, name, created_at, deleted_at`

func (s *SQLiteDatabase) CreateFolder(folder *model.Folder) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO folders (id, owner_id, name, created_at, deleted_at) VALUES (?, ?, ?, ?, ?)`,
		folder.ID, folder.OwnerID, folder.Name, folder.CreatedAt.UTC(), nullTime(folder.DeletedAt))
	if err != nil {
		return fmt.Errorf("inserting folder: %w", classify(err))
	}
	return nil
}

func (s *SQLiteDatabase) FindFolder(id string) (*model.Folder, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+folderColumns+` FROM folders WHERE id = ?`, id)
	folder, err := scanFolder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding folder: %w", classify(err))
	}
	return folder, nil
}

func (s *SQLiteDatabase) FindActiveFoldersByOwner(ownerID string) ([]*model.Folder, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT `+folderColumns+` FROM folders
		WHERE owner_id = ? AND deleted_at IS NULL
		ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", classify(err))
	}
	defer rows.Close()

	var result []*model.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning folder: %w", err)
		}
		result = append(result, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing folders: %w", classify(err))
	}
	return result, nil
}

func (s *SQLiteDatabase) SaveFolder(folder *model.Folder) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE folders SET name = ?, deleted_at = ? WHERE id = ?`,
		folder.Name, nullTime(folder.DeletedAt), folder.ID)
	if err != nil {
		return fmt.Errorf("updating folder: %w", classify(err))
	}
	return requireRow(res, "folder", folder.ID)
}

func scanFolder(sc scanner) (*model.Folder, error) {
	var f model.Folder
	var deletedAt sql.NullTime
	if err := sc.Scan(&f.ID, &f.OwnerID, &f.Name, &f.CreatedAt, &deletedAt); err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	f.DeletedAt = timePtr(deletedAt)
	return &f, nil
}

// Note operations

// noteColumns selects a note joined with its folder (aliases n and f).
const noteColumns = `n.id, n.owner_id, n.folder_id, n.content, n.created_at, n.updated_at, n.deleted_at,
	f.id, f.owner_id, f.name, f.created_at, f.deleted_at`

func (s *SQLiteDatabase) CreateNote(note *model.Note) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO notes (id, owner_id, folder_id, content, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.ID, note.OwnerID, note.FolderID, note.Content,
		note.CreatedAt.UTC(), note.UpdatedAt.UTC(), nullTime(note.DeletedAt))
	if err != nil {
		return fmt.Errorf("inserting note: %w", classify(err))
	}
	return nil
}

func (s *SQLiteDatabase) FindNote(id string) (*model.Note, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT `+noteColumns+` FROM notes n JOIN folders f ON f.id = n.folder_id WHERE n.id = ?`, id)
	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding note: %w", classify(err))
	}
	return note, nil
}

func (s *SQLiteDatabase) FindVisibleNotesByFolder(folderID string) ([]*model.Note, error) {
	return s.findNotes(`SELECT `+noteColumns+` FROM notes n JOIN folders f ON f.id = n.folder_id
		WHERE n.folder_id = ? AND n.deleted_at IS NULL AND f.deleted_at IS NULL
		ORDER BY n.created_at, n.id`, folderID)
}

func (s *SQLiteDatabase) FindVisibleNotesByOwner(ownerID string) ([]*model.Note, error) {
	return s.findNotes(`SELECT `+noteColumns+` FROM notes n JOIN folders f ON f.id = n.folder_id
		WHERE n.owner_id = ? AND n.deleted_at IS NULL AND f.deleted_at IS NULL
		ORDER BY n.created_at, n.id`, ownerID)
}

func (s *SQLiteDatabase) findNotes(query string, arg string) ([]*model.Note, error) {
	rows, err := s.db.QueryContext(context.Background(), query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", classify(err))
	}
	defer rows.Close()

	var result []*model.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		result = append(result, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing notes: %w", classify(err))
	}
	return result, nil
}

// UpdateNoteContent writes content only while the note and its folder are
// both undeleted, so a content write racing a delete cannot revive the note.
func (s *SQLiteDatabase) UpdateNoteContent(id, content string, at time.Time) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE notes SET content = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
		AND folder_id IN (SELECT id FROM folders WHERE deleted_at IS NULL)`,
		content, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("updating note content: %w", classify(err))
	}
	return requireRow(res, "visible note", id)
}

// SetNoteDeleted writes the note's own deletion mark and nothing else.
func (s *SQLiteDatabase) SetNoteDeleted(id string, at *time.Time) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE notes SET deleted_at = ? WHERE id = ?`, nullTime(at), id)
	if err != nil {
		return fmt.Errorf("updating note deletion: %w", classify(err))
	}
	return requireRow(res, "note", id)
}

// scanNote reads the columns listed in noteColumns, in order, plus any
// leading destinations supplied in pre.
func scanNote(sc scanner, pre ...any) (*model.Note, error) {
	var n model.Note
	var f model.Folder
	var noteDeleted, folderDeleted sql.NullTime

	dest := append(pre,
		&n.ID, &n.OwnerID, &n.FolderID, &n.Content, &n.CreatedAt, &n.UpdatedAt, &noteDeleted,
		&f.ID, &f.OwnerID, &f.Name, &f.CreatedAt, &folderDeleted)
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}

	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	n.DeletedAt = timePtr(noteDeleted)
	f.CreatedAt = f.CreatedAt.UTC()
	f.DeletedAt = timePtr(folderDeleted)
	n.Folder = &f
	return &n, nil
}

// Maintenance

// Path returns the database file path (or MemoryPath).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// MigrateUp applies any pending schema migrations.
func (s *SQLiteDatabase) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo writes a consistent copy of the database to destPath using VACUUM INTO.
// destPath must not exist.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", classify(err))
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, notes.ErrNotFound)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// Compile-time check that SQLiteDatabase implements notes.Database
var _ notes.Database = (*SQLiteDatabase)(nil)
