package handlers

import (
	"log"
	"net/http"

	"imposter-game-backend/internal/apperr"
	"imposter-game-backend/internal/models"
	"imposter-game-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
	Code  string `json:"code,omitempty" example:"INVALID_STATE"`
}

type MessageResponse struct {
	Message string `json:"message" example:"operation successful"`
}

// Type aliases so swag can resolve models in annotations.
type Session = models.Session
type Player = models.Player
type SessionState = services.SessionState

// writeError maps engine errors onto HTTP statuses. Errors without a kind
// are logged and reported as 500.
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()
	if status == http.StatusInternalServerError {
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, ErrorResponse{Error: "internal error", Code: "INTERNAL"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: string(kind)})
}
