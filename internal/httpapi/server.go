// Package httpapi exposes the notes service over HTTP.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"notes-go/internal/model"
	"notes-go/internal/notes"
)

const currentUserKey = "current_user"

// Authenticator issues and resolves bearer credentials.
type Authenticator interface {
	Issue(user *model.User) (string, error)
	Resolve(credential string) (*model.User, error)
}

// Handler holds the collaborators shared by every route.
type Handler struct {
	svc    *notes.Service
	authn  Authenticator
	clock  notes.Clock
	logger notes.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc *notes.Service, authn Authenticator, clock notes.Clock, logger notes.Logger) *Handler {
	return &Handler{svc: svc, authn: authn, clock: clock, logger: logger}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/auth/register", h.register)
	r.POST("/auth/login", h.login)

	r.GET("/shared/:token", h.readShared)
	r.PUT("/shared/:token", h.updateShared)

	protected := r.Group("/")
	protected.Use(h.requireUser())
	{
		protected.GET("/me", h.me)

		protected.POST("/folders", h.createFolder)
		protected.GET("/folders", h.listFolders)
		protected.DELETE("/folders/:id", h.deleteFolder)
		protected.POST("/folders/:id/restore", h.restoreFolder)
		protected.GET("/folders/:id/notes", h.listFolderNotes)
		protected.POST("/folders/:id/notes", h.createNote)

		protected.GET("/notes", h.listNotes)
		protected.GET("/notes/:id", h.getNote)
		protected.PUT("/notes/:id", h.updateNote)
		protected.DELETE("/notes/:id", h.deleteNote)
		protected.POST("/notes/:id/restore", h.restoreNote)
		protected.POST("/notes/:id/share", h.shareNote)

		protected.GET("/links", h.listLinks)
		protected.POST("/links/:token/revoke", h.revokeLink)
	}

	return r
}

// requireUser resolves the bearer credential and stores the acting user.
func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		credential, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(c, notes.ErrUnauthenticated)
			c.Abort()
			return
		}

		user, err := h.authn.Resolve(strings.TrimSpace(credential))
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *model.User {
	return c.MustGet(currentUserKey).(*model.User)
}

// requestLogger logs one line per request. Shared link paths carry the
// token, so only the route pattern is logged.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.logger.Debug("http request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
