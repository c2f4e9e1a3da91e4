package handlers

import (
	"net/http"

	"flota_console/internal/dto"

	"github.com/gin-gonic/gin"
)

// ============================================
// CONFIRM HANDLER
// ============================================

type ConfirmHandler struct {
	*BaseHandler
}

func NewConfirmHandler(base *BaseHandler) *ConfirmHandler {
	return &ConfirmHandler{BaseHandler: base}
}

func (h *ConfirmHandler) RegisterRoutes(r *gin.RouterGroup) {
	confirm := r.Group("/console/:resource/confirm")
	{
		confirm.GET("", h.Get)
		confirm.POST("", h.Request)
		confirm.POST("/accept", h.Accept)
		confirm.POST("/cancel", h.Cancel)
	}
}

// Get - pending destructive action, if any
func (h *ConfirmHandler) Get(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rc.Confirm.Snapshot())
}

// Request - puts a row behind the confirmation gate
func (h *ConfirmHandler) Request(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	var req dto.ConfirmRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	if err := rc.RequestDelete(req.ID.String()); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc.Confirm.Snapshot())
}

// Accept - runs the action; on failure the request stays pending
func (h *ConfirmHandler) Accept(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	if err := rc.ConfirmDelete(c.Request.Context()); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc.Confirm.Snapshot())
}

// Cancel - dismisses the pending request
func (h *ConfirmHandler) Cancel(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	if err := rc.CancelDelete(); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc.Confirm.Snapshot())
}
