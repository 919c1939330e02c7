package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Role is the account-level role of a User.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User is an account that owns folders, notes and shared links.
type User struct {
	ID           string // UUID
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Folder groups notes. DeletedAt is set by a folder-level delete and
// hides every contained note without touching the notes themselves.
type Folder struct {
	ID        string // UUID
	OwnerID   string // Foreign key to User
	Name      string
	CreatedAt time.Time
	DeletedAt *time.Time
}

// Note belongs to exactly one folder and to that folder's owner.
// DeletedAt is only ever set by a direct delete of the note.
type Note struct {
	ID        string // UUID
	OwnerID   string // Foreign key to User, equal to Folder.OwnerID
	FolderID  string // Foreign key to Folder
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time

	// Folder is the containing folder as loaded alongside the note.
	Folder *Folder
}

// SharedLink is a bearer capability over a single note.
type SharedLink struct {
	ID        string // UUID
	Token     string // opaque, unique
	NoteID    string // Foreign key to Note
	CreatorID string // Foreign key to User
	Actions   ActionSet
	CreatedAt time.Time
	ExpiresAt *time.Time
	RevokedAt *time.Time

	// Note is the bound note, with its Folder, as loaded alongside the link.
	Note *Note
}

// Action is an operation kind that can be authorized for an owner or
// granted through a shared link.
type Action string

const (
	ActionRead   Action = "READ"
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionShare  Action = "SHARE"
)

// AllActions lists every recognized action kind.
var AllActions = []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionShare}

// Known reports whether a is one of the recognized action kinds.
func (a Action) Known() bool {
	return slices.Contains(AllActions, a)
}

// ParseAction parses a case-insensitive action name.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Known() {
		return "", fmt.Errorf("unknown action: %q", s)
	}
	return a, nil
}

// ActionSet is a set of actions.
type ActionSet map[Action]struct{}

// NewActionSet builds a set from the given actions.
func NewActionSet(actions ...Action) ActionSet {
	set := make(ActionSet, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// Contains reports whether a is in the set.
func (s ActionSet) Contains(a Action) bool {
	_, ok := s[a]
	return ok
}

// Sorted returns the members in AllActions order.
func (s ActionSet) Sorted() []Action {
	out := make([]Action, 0, len(s))
	for _, a := range AllActions {
		if s.Contains(a) {
			out = append(out, a)
		}
	}
	return out
}
