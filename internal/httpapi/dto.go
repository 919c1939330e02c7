package httpapi

import (
	"time"

	"notes-go/internal/model"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type folderRequest struct {
	Name string `json:"name"`
}

type noteRequest struct {
	Content string `json:"content"`
}

type sharedUpdateRequest struct {
	Content *string `json:"content"`
}

type shareRequest struct {
	Actions          []string `json:"actions"`
	ExpiresInSeconds *int64   `json:"expiresInSeconds"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type registerResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

type userResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

type folderResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func newFolderResponse(f *model.Folder) folderResponse {
	return folderResponse{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt, DeletedAt: f.DeletedAt}
}

func newFolderResponses(folders []*model.Folder) []folderResponse {
	out := make([]folderResponse, 0, len(folders))
	for _, f := range folders {
		out = append(out, newFolderResponse(f))
	}
	return out
}

type noteResponse struct {
	ID        string     `json:"id"`
	FolderID  string     `json:"folderId"`
	OwnerID   string     `json:"ownerId"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func newNoteResponse(n *model.Note) noteResponse {
	return noteResponse{
		ID:        n.ID,
		FolderID:  n.FolderID,
		OwnerID:   n.OwnerID,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		DeletedAt: n.DeletedAt,
	}
}

func newNoteResponses(found []*model.Note) []noteResponse {
	out := make([]noteResponse, 0, len(found))
	for _, n := range found {
		out = append(out, newNoteResponse(n))
	}
	return out
}

// sharedNoteResponse is what a link holder sees. It carries no owner or
// deletion details.
type sharedNoteResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newSharedNoteResponse(n *model.Note) sharedNoteResponse {
	return sharedNoteResponse{ID: n.ID, Content: n.Content, UpdatedAt: n.UpdatedAt}
}

type linkResponse struct {
	ID        string         `json:"id"`
	Token     string         `json:"token"`
	NoteID    string         `json:"noteId"`
	Actions   []model.Action `json:"actions"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
	RevokedAt *time.Time     `json:"revokedAt,omitempty"`
}

func newLinkResponse(l *model.SharedLink) linkResponse {
	return linkResponse{
		ID:        l.ID,
		Token:     l.Token,
		NoteID:    l.NoteID,
		Actions:   l.Actions.Sorted(),
		CreatedAt: l.CreatedAt,
		ExpiresAt: l.ExpiresAt,
		RevokedAt: l.RevokedAt,
	}
}

func newLinkResponses(links []*model.SharedLink) []linkResponse {
	out := make([]linkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, newLinkResponse(l))
	}
	return out
}
