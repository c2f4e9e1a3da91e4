package handlers

import (
	"context"
	"net/http"

	"flota_console/internal/dto"
	"flota_console/internal/logger"
	"flota_console/internal/middleware"
	"flota_console/internal/models"
	"flota_console/internal/session"

	"github.com/gin-gonic/gin"
)

// SessionService is the part of the session manager the handler needs.
type SessionService interface {
	Login(ctx context.Context, email, password string) (*session.Live, error)
	FromToken(ctx context.Context, token string) (*session.Live, error)
	Logout(ctx context.Context, id string) error
}

// ============================================
// SESSION HANDLER
// ============================================

type SessionHandler struct {
	*BaseHandler
	sessions     SessionService
	cookieMaxAge int
}

func NewSessionHandler(base *BaseHandler, sessions SessionService, cookieMaxAge int) *SessionHandler {
	return &SessionHandler{
		BaseHandler:  base,
		sessions:     sessions,
		cookieMaxAge: cookieMaxAge,
	}
}

// RegisterRoutes mounts login on public and the session routes on protected,
// which must already carry SessionMiddleware.
func (h *SessionHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/session/login", h.Login)
	public.POST("/session/sso", h.SSO)

	protected.GET("/session/me", h.Me)
	protected.POST("/session/logout", h.Logout)
}

// Login - email/password sign-in against the fleet API
func (h *SessionHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	live, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.started(c, live)
}

// SSO - sign-in with a token issued elsewhere, as ?sso_token= or {token}
func (h *SessionHandler) SSO(c *gin.Context) {
	var req dto.SSORequest
	if tok := c.Query("sso_token"); tok != "" {
		req.Token = tok
	} else if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	live, err := h.sessions.FromToken(c.Request.Context(), req.Token)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	h.started(c, live)
}

func (h *SessionHandler) started(c *gin.Context, live *session.Live) {
	middleware.SetSessionCookie(c, live.ID, h.cookieMaxAge)
	logger.CtxInfo(c.Request.Context(), "Session started", "session_id", live.ID, "user_id", live.User.ID.String())
	c.JSON(http.StatusOK, sessionResponse(live, true))
}

// Me - current user and the screens they may open
func (h *SessionHandler) Me(c *gin.Context) {
	live, ok := h.Session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse(live, false))
}

// Logout - drops the stored token and closes the workspace
func (h *SessionHandler) Logout(c *gin.Context) {
	live, ok := h.Session(c)
	if !ok {
		return
	}
	if err := h.sessions.Logout(c.Request.Context(), live.ID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	middleware.ClearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func sessionResponse(live *session.Live, withID bool) dto.SessionResponse {
	resp := dto.SessionResponse{
		User:      live.User,
		CanWrite:  live.User.CanWrite(),
		IsAdmin:   live.User.IsAdmin(),
		Resources: []string{},
	}
	if withID {
		resp.SessionID = live.ID
	}
	for _, name := range models.ResourceNames() {
		res, _ := models.Lookup(name)
		if res.Permits(live.User, false) {
			resp.Resources = append(resp.Resources, name)
		}
	}
	return resp
}
