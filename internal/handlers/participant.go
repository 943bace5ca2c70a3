package handlers

import (
	"net/http"

	"imposter-game-backend/internal/apperr"
	"imposter-game-backend/internal/middleware"
	"imposter-game-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type ParticipantHandler struct {
	sessionService *services.SessionService
	authService    *services.AuthService
}

func NewParticipantHandler(sessionService *services.SessionService, authService *services.AuthService) *ParticipantHandler {
	return &ParticipantHandler{sessionService: sessionService, authService: authService}
}

type JoinSessionRequest struct {
	UserID string `json:"user_id" binding:"required,max=100" example:"device-42"`
	Name   string `json:"name" binding:"required,min=1,max=100" example:"Player1"`
}

type JoinSessionResponse struct {
	Player      *Player `json:"player"`
	PlayerToken string  `json:"player_token"`
}

type CastVoteRequest struct {
	TargetID string `json:"target_id" binding:"required" example:"6f1c..."`
}

// JoinSession godoc
// @Summary      Join a lobby
// @Tags         players
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body JoinSessionRequest true "Join data"
// @Success      201 {object} JoinSessionResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/join [post]
func (h *ParticipantHandler) JoinSession(c *gin.Context) {
	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: string(apperr.InvalidArgument)})
		return
	}

	sessionID := c.Param("id")
	player, err := h.sessionService.JoinSession(c.Request.Context(), sessionID, req.UserID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	token, err := h.authService.PlayerToken(sessionID, player.ID, player.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, JoinSessionResponse{Player: player, PlayerToken: token})
}

// GetRole godoc
// @Summary      Read my role card
// @Tags         players
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} services.RoleInfo
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/role [get]
func (h *ParticipantHandler) GetRole(c *gin.Context) {
	claims := middleware.Claims(c)
	info, err := h.sessionService.GetPlayerRole(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// CastVote godoc
// @Summary      Vote for a player
// @Tags         players
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Param        request body CastVoteRequest true "Vote"
// @Success      201 {object} services.CastVoteResult
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/votes [post]
func (h *ParticipantHandler) CastVote(c *gin.Context) {
	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: string(apperr.InvalidArgument)})
		return
	}

	claims := middleware.Claims(c)
	result, err := h.sessionService.CastVote(c.Request.Context(), c.Param("id"), claims.PlayerID, req.TargetID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
