package handlers

import (
	"net/http"

	"flota_console/internal/dto"
	"flota_console/internal/session"

	"github.com/gin-gonic/gin"
)

// ============================================
// FORM HANDLER
// ============================================

type FormHandler struct {
	*BaseHandler
}

func NewFormHandler(base *BaseHandler) *FormHandler {
	return &FormHandler{BaseHandler: base}
}

func (h *FormHandler) RegisterRoutes(r *gin.RouterGroup) {
	form := r.Group("/console/:resource/form")
	{
		form.POST("", h.Open)
		form.GET("", h.Get)
		form.PATCH("", h.Update)
		form.DELETE("", h.Close)
		form.POST("/submit", h.Submit)
		form.POST("/draft", h.Draft)
	}
}

// waitBackground lets callers observe reference and attachment loads.
func waitBackground(c *gin.Context, live *session.Live) {
	if c.Query("wait") == "true" {
		live.Workspace.Flush()
	}
}

// Open - opens the form empty, or seeded from the record with the given id
func (h *FormHandler) Open(c *gin.Context) {
	rc, live, ok := h.Console(c)
	if !ok {
		return
	}
	var req dto.OpenFormRequest
	if c.Request.ContentLength != 0 && !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := rc.OpenForm(c.Request.Context(), req.ID.String()); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	waitBackground(c, live)
	c.JSON(http.StatusOK, rc.Form.Snapshot())
}

// Get - current form snapshot
func (h *FormHandler) Get(c *gin.Context) {
	rc, live, ok := h.Console(c)
	if !ok {
		return
	}
	waitBackground(c, live)
	c.JSON(http.StatusOK, rc.Form.Snapshot())
}

// Update - applies edited field values
func (h *FormHandler) Update(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	var req dto.UpdateFormRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	if err := rc.UpdateForm(req.Fields); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc.Form.Snapshot())
}

// Close - discards the buffer
func (h *FormHandler) Close(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	if err := rc.CloseForm(); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc.Form.Snapshot())
}

// Submit - creates or updates the record
func (h *FormHandler) Submit(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	saved, err := rc.SubmitForm(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SubmitResponse{Saved: saved, Form: rc.Form.Snapshot()})
}

// Draft - creates the placeholder record attachments need
func (h *FormHandler) Draft(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	id, err := rc.EnsureDraft(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DraftResponse{ID: id, Form: rc.Form.Snapshot()})
}
