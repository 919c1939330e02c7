package httpapi

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"notes-go/internal/model"
	"notes-go/internal/notes"
)

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, fmt.Errorf("%w: %w", errBadRequestBody, err))
		return false
	}
	return true
}

// Accounts

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.svc.RegisterUser(req.Email, req.Password, model.RoleUser)
	if err != nil {
		writeError(c, err)
		return
	}
	token, err := h.authn.Issue(user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, registerResponse{User: newUserResponse(user), Token: token})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.svc.Authenticate(req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	token, err := h.authn.Issue(user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, newUserResponse(currentUser(c)))
}

// Folders

func (h *Handler) createFolder(c *gin.Context) {
	var req folderRequest
	if !bind(c, &req) {
		return
	}
	folder, err := h.svc.CreateFolder(req.Name, currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newFolderResponse(folder))
}

func (h *Handler) listFolders(c *gin.Context) {
	folders, err := h.svc.ListFolders(currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFolderResponses(folders))
}

func (h *Handler) deleteFolder(c *gin.Context) {
	folder, err := h.svc.DeleteFolder(c.Param("id"), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFolderResponse(folder))
}

func (h *Handler) restoreFolder(c *gin.Context) {
	folder, err := h.svc.RestoreFolder(c.Param("id"), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newFolderResponse(folder))
}

func (h *Handler) listFolderNotes(c *gin.Context) {
	found, err := h.svc.ListFolderNotes(c.Param("id"), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNoteResponses(found))
}

// Notes

func (h *Handler) createNote(c *gin.Context) {
	var req noteRequest
	if !bind(c, &req) {
		return
	}
	note, err := h.svc.CreateNote(c.Param("id"), req.Content, currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newNoteResponse(note))
}

func (h *Handler) listNotes(c *gin.Context) {
	found, err := h.svc.ListNotes(currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNoteResponses(found))
}

func (h *Handler) getNote(c *gin.Context) {
	note, err := h.svc.GetNote(c.Param("id"), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNoteResponse(note))
}

func (h *Handler) updateNote(c *gin.Context) {
	var req noteRequest
	if !bind(c, &req) {
		return
	}
	note, err := h.svc.UpdateNote(c.Param("id"), req.Content, currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNoteResponse(note))
}

func (h *Handler) deleteNote(c *gin.Context) {
	note, err := h.svc.DeleteNote(c.Param("id"), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNoteResponse(note))
}

func (h *Handler) restoreNote(c *gin.Context) {
	note, err := h.svc.RestoreNote(c.Param("id"), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newNoteResponse(note))
}

// Shared links

func (h *Handler) shareNote(c *gin.Context) {
	var req shareRequest
	if !bind(c, &req) {
		return
	}

	actions := make([]model.Action, 0, len(req.Actions))
	for _, name := range req.Actions {
		a, err := model.ParseAction(name)
		if err != nil {
			writeError(c, fmt.Errorf("%w: %w", notes.ErrInvalidInput, err))
			return
		}
		actions = append(actions, a)
	}

	var expiresAt *time.Time
	if req.ExpiresInSeconds != nil {
		secs := *req.ExpiresInSeconds
		if secs > maxExpiresInSeconds {
			writeError(c, fmt.Errorf("expiresInSeconds must be at most %d: %w", maxExpiresInSeconds, notes.ErrInvalidInput))
			return
		}
		at := h.clock.Now().Add(time.Duration(secs) * time.Second)
		expiresAt = &at
	}

	link, err := h.svc.CreateLink(c.Param("id"), currentUser(c).ID, actions, expiresAt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newLinkResponse(link))
}

// maxExpiresInSeconds is the largest lifetime a time.Duration can hold.
const maxExpiresInSeconds = math.MaxInt64 / int64(time.Second)

func (h *Handler) listLinks(c *gin.Context) {
	links, err := h.svc.ListLinks(currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLinkResponses(links))
}

func (h *Handler) revokeLink(c *gin.Context) {
	link, err := h.svc.RevokeLink(c.Param("token"), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLinkResponse(link))
}

// Access through a link. No user is resolved: the token is the credential.

func (h *Handler) readShared(c *gin.Context) {
	note, err := h.svc.ReadViaLink(c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSharedNoteResponse(note))
}

func (h *Handler) updateShared(c *gin.Context) {
	var req sharedUpdateRequest
	if !bind(c, &req) {
		return
	}
	note, err := h.svc.UpdateViaLink(c.Param("token"), req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSharedNoteResponse(note))
}
