package handlers

import (
	"net/http"
	"strconv"

	"imposter-game-backend/internal/apperr"
	"imposter-game-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionService *services.SessionService
	authService    *services.AuthService
}

func NewSessionHandler(sessionService *services.SessionService, authService *services.AuthService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, authService: authService}
}

type CreateSessionResponse struct {
	Session   *Session `json:"session"`
	HostToken string   `json:"host_token"`
}

type StartSessionResponse struct {
	TotalPlayers int `json:"total_players" example:"5"`
}

type NextRoundResponse struct {
	Round int `json:"round" example:"2"`
}

// CreateSession godoc
// @Summary      Create a game session
// @Description  Creates a LOBBY session with a join code. Leave topic and hint empty to draw from the topic pack.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        request body services.CreateSessionInput false "Session options"
// @Success      201 {object} CreateSessionResponse
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req services.CreateSessionInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: string(apperr.InvalidArgument)})
			return
		}
	}

	session, err := h.sessionService.CreateSession(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	token, err := h.authService.HostToken(session.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreateSessionResponse{Session: session, HostToken: token})
}

// GetSessionByCode godoc
// @Summary      Resolve a join code
// @Tags         sessions
// @Produce      json
// @Param        code path string true "Join code"
// @Success      200 {object} Session
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/code/{code} [get]
func (h *SessionHandler) GetSessionByCode(c *gin.Context) {
	session, err := h.sessionService.GetSessionByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetState godoc
// @Summary      Poll session state
// @Description  Roles are only shown for eliminated players, and for everyone once the session ended.
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} SessionState
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/state [get]
func (h *SessionHandler) GetState(c *gin.Context) {
	state, err := h.sessionService.GetState(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// StartSession godoc
// @Summary      Start the game
// @Description  Assigns roles and starts the round timer. Imposter ids are not part of the response.
// @Tags         host
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} StartSessionResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	result, err := h.sessionService.StartSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, StartSessionResponse{TotalPlayers: result.TotalPlayers})
}

// OpenVoting godoc
// @Summary      Open voting
// @Tags         host
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} MessageResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/voting [post]
func (h *SessionHandler) OpenVoting(c *gin.Context) {
	if err := h.sessionService.OpenVoting(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "voting opened"})
}

// Eliminate godoc
// @Summary      Eliminate the most voted player
// @Tags         host
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} services.EliminationResult
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/eliminate [post]
func (h *SessionHandler) Eliminate(c *gin.Context) {
	result, err := h.sessionService.Eliminate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// NextRound godoc
// @Summary      Start the next round
// @Tags         host
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} NextRoundResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/rounds [post]
func (h *SessionHandler) NextRound(c *gin.Context) {
	round, err := h.sessionService.NextRound(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NextRoundResponse{Round: round})
}

// ForceEnd godoc
// @Summary      End the session
// @Tags         host
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} MessageResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/end [post]
func (h *SessionHandler) ForceEnd(c *gin.Context) {
	if err := h.sessionService.ForceEnd(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "session ended"})
}

// PauseTimer godoc
// @Summary      Pause the round timer
// @Tags         host
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} MessageResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/timer/pause [post]
func (h *SessionHandler) PauseTimer(c *gin.Context) {
	if err := h.sessionService.PauseTimer(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "timer paused"})
}

// ResumeTimer godoc
// @Summary      Resume the round timer
// @Tags         host
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} MessageResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/timer/resume [post]
func (h *SessionHandler) ResumeTimer(c *gin.Context) {
	if err := h.sessionService.ResumeTimer(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "timer resumed"})
}

// Tally godoc
// @Summary      Vote tally
// @Description  Counts per target, most votes first; ties list the lower seat first.
// @Tags         host
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Param        round query int false "Round, defaults to the current one"
// @Success      200 {array} services.TallyEntry
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/tally [get]
func (h *SessionHandler) Tally(c *gin.Context) {
	round := 0
	if raw := c.Query("round"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid round", Code: string(apperr.InvalidArgument)})
			return
		}
		round = n
	}
	tally, err := h.sessionService.Tally(c.Request.Context(), c.Param("id"), round)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}
