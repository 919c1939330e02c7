package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"notes-go/internal/notes"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

var errBadRequestBody = errors.New("invalid request body")

// writeError maps service errors onto HTTP statuses. Anything unrecognized
// is a 500 whose body carries no internal detail.
func writeError(c *gin.Context, err error) {
	status, message := classify(err)
	c.JSON(status, errorResponse{Status: status, Message: message})
}

func classify(err error) (int, string) {
	var linkErr *notes.LinkError
	switch {
	case errors.As(err, &linkErr):
		return http.StatusForbidden, linkErr.State.Reason()
	case errors.Is(err, errBadRequestBody):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, notes.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, notes.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthenticated"
	case errors.Is(err, notes.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, notes.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, notes.ErrConflict):
		return http.StatusConflict, "Conflict"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
