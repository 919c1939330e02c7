package notes

import (
	"time"

	"notes-go/internal/model"
)

// Database is the store consumed by the service layer.
// Find methods return (nil, nil) when the record does not exist.
type Database interface {
	// User operations

	// CreateUser inserts a new user. A duplicate email is reported as ErrConflict.
	CreateUser(user *model.User) error

	// FindUserByID returns the user with the given ID.
	FindUserByID(id string) (*model.User, error)

	// FindUserByEmail returns the user with the given email address.
	FindUserByEmail(email string) (*model.User, error)

	// Folder operations

	// CreateFolder inserts a new folder.
	CreateFolder(folder *model.Folder) error

	// FindFolder returns a folder by ID, including folder-deleted ones.
	FindFolder(id string) (*model.Folder, error)

	// FindActiveFoldersByOwner returns the owner's folders that are not deleted, oldest first.
	FindActiveFoldersByOwner(ownerID string) ([]*model.Folder, error)

	// SaveFolder persists the mutable fields of a folder (name, deleted_at).
	SaveFolder(folder *model.Folder) error

	// Note operations

	// CreateNote inserts a new note. A note whose owner differs from its
	// folder's owner is rejected with ErrConflict.
	CreateNote(note *model.Note) error

	// FindNote returns a note by ID with its Folder loaded, including
	// soft-deleted notes and notes in deleted folders.
	FindNote(id string) (*model.Note, error)

	// FindVisibleNotesByFolder returns the visible notes of a folder, oldest first.
	FindVisibleNotesByFolder(folderID string) ([]*model.Note, error)

	// FindVisibleNotesByOwner returns every visible note of an owner, oldest first.
	FindVisibleNotesByOwner(ownerID string) ([]*model.Note, error)

	// UpdateNoteContent sets content and updated_at, but only while the note
	// and its folder are both undeleted. Otherwise nothing is written and
	// ErrNotFound is returned.
	UpdateNoteContent(id, content string, at time.Time) error

	// SetNoteDeleted sets or clears the note's own deletion mark. Content is
	// not written.
	SetNoteDeleted(id string, at *time.Time) error

	// Shared link operations

	// CreateSharedLink inserts a link and its action set atomically.
	// A token collision is reported as ErrDuplicateToken.
	CreateSharedLink(link *model.SharedLink) error

	// FindSharedLinkByToken returns a link with its Note and the note's Folder loaded.
	FindSharedLinkByToken(token string) (*model.SharedLink, error)

	// FindSharedLinksByCreator returns the links a user created, newest first.
	FindSharedLinksByCreator(creatorID string) ([]*model.SharedLink, error)

	// SaveSharedLink persists the mutable fields of a link (revoked_at).
	SaveSharedLink(link *model.SharedLink) error

	// DeleteExpiredLinksBefore removes links whose expiry is strictly before t.
	// Lock contention is reported as ErrTransient.
	DeleteExpiredLinksBefore(t time.Time) (int64, error)

	// Close closes the database connection.
	Close() error
}
