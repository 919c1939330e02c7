package notes

import "errors"

// Outcome kinds. Callers match them with errors.Is.
var (
	// ErrNotFound covers absent, not-owned and not-visible resources alike.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the resource is reachable but the action is not allowed.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict reports an invariant violation such as a cross-owner note.
	ErrConflict = errors.New("conflict")

	// ErrUnauthenticated means the caller credential could not be resolved to a user.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidInput reports a malformed request value.
	ErrInvalidInput = errors.New("invalid input")
)

// Storage-level conditions reported by Database implementations.
var (
	ErrDuplicateToken = errors.New("duplicate shared link token")
	ErrTransient      = errors.New("transient storage failure")
)

// LinkState is the admission state of a shared link, derived at validation time.
type LinkState int

const (
	LinkValid LinkState = iota
	LinkRevoked
	LinkExpired
	LinkActionDenied
	LinkNoteDeleted
	LinkFolderDeleted
)

func (s LinkState) String() string {
	switch s {
	case LinkValid:
		return "valid"
	case LinkRevoked:
		return "revoked"
	case LinkExpired:
		return "expired"
	case LinkActionDenied:
		return "action-denied"
	case LinkNoteDeleted:
		return "note-deleted"
	case LinkFolderDeleted:
		return "folder-deleted"
	default:
		return "unknown"
	}
}

// Reason is the caller-facing description of a rejected state.
func (s LinkState) Reason() string {
	switch s {
	case LinkRevoked:
		return "Link revoked"
	case LinkExpired:
		return "Link expired"
	case LinkActionDenied:
		return "Action not allowed"
	case LinkNoteDeleted:
		return "Note deleted"
	case LinkFolderDeleted:
		return "Note's folder deleted"
	default:
		return "Link valid"
	}
}

// LinkError is returned when a shared link exists but fails admission.
// It matches ErrForbidden.
type LinkError struct {
	State LinkState
}

func (e *LinkError) Error() string {
	return "shared link rejected: " + e.State.String()
}

func (e *LinkError) Unwrap() error { return ErrForbidden }
