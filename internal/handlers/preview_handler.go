package handlers

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"flota_console/internal/dto"
	"flota_console/internal/imageprocessor"
	"flota_console/internal/logger"
	"flota_console/internal/models"
	"flota_console/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ============================================
// PREVIEW HANDLER
// ============================================

type PreviewHandler struct {
	*BaseHandler
	thumbs    *imageprocessor.Processor
	servePath string
}

func NewPreviewHandler(base *BaseHandler, thumbs *imageprocessor.Processor) *PreviewHandler {
	return &PreviewHandler{BaseHandler: base, thumbs: thumbs}
}

func (h *PreviewHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/console/:resource/preview", h.Create)
	h.servePath = path.Join(r.BasePath(), "previews") + "/"

	previews := r.Group("/previews")
	{
		previews.GET("/:previewId", h.Serve)
		previews.DELETE("/:previewId", h.Release)
	}
}

// Create - downloads a stored attachment into a short-lived preview
func (h *PreviewHandler) Create(c *gin.Context) {
	rc, live, ok := h.Console(c)
	if !ok {
		return
	}
	var q dto.PreviewQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}
	if !previewAllowed(rc.Resource, q.Path) {
		apperrors.HandleError(c, apperrors.ErrPathNotAllowed)
		return
	}

	pv, err := live.Workspace.Preview(c.Request.Context(), q.Path, q.Name)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PreviewResponse{
		ID:       pv.ID,
		Name:     pv.Name,
		MimeType: pv.MimeType,
		URL:      h.servePath + pv.ID,
		Expires:  pv.Expires,
	})
}

// Serve - preview bytes, inline; ?thumb=true downscales images
func (h *PreviewHandler) Serve(c *gin.Context) {
	live, ok := h.Session(c)
	if !ok {
		return
	}
	pv, found := live.Workspace.Previews().Get(c.Param("previewId"))
	if !found {
		apperrors.HandleError(c, apperrors.ErrPreviewNotFound)
		return
	}

	data, mimeType := pv.Data, pv.MimeType
	if c.Query("thumb") == "true" && h.thumbs != nil && strings.HasPrefix(mimeType, "image/") {
		thumb, thumbType, err := h.thumbs.Thumbnail(data)
		switch {
		case err == nil:
			data, mimeType = thumb, thumbType
		case errors.Is(err, imageprocessor.ErrNotImage):
			// served as is
		default:
			logger.CtxWarn(c.Request.Context(), "Thumbnail failed", "preview_id", pv.ID, "error", err)
		}
	}

	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": pv.Name}))
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, mimeType, data)
}

// Release - drops a preview before it expires
func (h *PreviewHandler) Release(c *gin.Context) {
	live, ok := h.Session(c)
	if !ok {
		return
	}
	live.Workspace.Previews().Release(c.Param("previewId"))
	c.Status(http.StatusNoContent)
}

// previewAllowed limits previews to the storage prefix of the resource, or
// to any attachment prefix on the documents screen.
func previewAllowed(res *models.Resource, key string) bool {
	clean := path.Clean(key)
	if clean != key || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return false
	}
	category, _, found := strings.Cut(key, "/")
	if !found {
		return false
	}
	if res.HasAttachments() {
		return category == res.AttachmentCategory
	}
	if res.Name != models.ResourceAdjuntos {
		return false
	}
	for _, name := range models.ResourceNames() {
		if other, _ := models.Lookup(name); other.AttachmentCategory == category {
			return true
		}
	}
	return false
}
