package handlers

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"flota_console/internal/console"
	"flota_console/internal/dto"
	"flota_console/internal/logger"
	"flota_console/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is the slack allowed above the file size for the
// multipart envelope and form fields.
const multipartOverhead = 1 << 20

// ============================================
// ATTACHMENT HANDLER
// ============================================

type AttachmentHandler struct {
	*BaseHandler
	maxUpload    int64
	allowedTypes map[string]bool
}

// NewAttachmentHandler accepts any content type when allowedTypes is empty.
func NewAttachmentHandler(base *BaseHandler, maxUpload int64, allowedTypes []string) *AttachmentHandler {
	if maxUpload <= 0 {
		maxUpload = console.DefaultMaxUploadSize
	}
	allowed := make(map[string]bool, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return &AttachmentHandler{
		BaseHandler:  base,
		maxUpload:    maxUpload,
		allowedTypes: allowed,
	}
}

func (h *AttachmentHandler) RegisterRoutes(r *gin.RouterGroup) {
	attachments := r.Group("/console/:resource/form/attachments")
	{
		attachments.GET("", h.List)
		attachments.POST("", h.Upload)
		attachments.DELETE("/:attachmentId", h.Delete)
	}
}

// List - reloads the attachments of the record open in the form
func (h *AttachmentHandler) List(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	if err := rc.Attachments.Load(c.Request.Context()); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc.Attachments.Snapshot())
}

// Upload - multipart "file" with an optional "tipo_adjunto" field
func (h *AttachmentHandler) Upload(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.HandleError(c, apperrors.ErrFileTooLarge)
			return
		}
		apperrors.HandleError(c, apperrors.NewBadRequestError("Archivo requerido: "+err.Error()))
		return
	}

	mimeType := detectMimeType(fh.Filename, fh.Header.Get("Content-Type"))
	if len(h.allowedTypes) > 0 && !h.allowedTypes[mimeType] {
		apperrors.HandleError(c, apperrors.ErrUnsupportedFileType(mimeType))
		return
	}

	f, err := fh.Open()
	if err != nil {
		logger.CtxWithError(ctx, "Failed to open uploaded file", err, "file", fh.Filename)
		apperrors.HandleError(c, apperrors.InternalError(err))
		return
	}
	defer f.Close()

	att, err := rc.Upload(ctx, console.FileUpload{
		Name:     fh.Filename,
		MimeType: mimeType,
		Size:     fh.Size,
		Body:     f,
		Kind:     c.PostForm("tipo_adjunto"),
	})
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	state := rc.Attachments.Snapshot()
	view := console.AttachmentView{Attachment: att}
	for _, item := range state.Items {
		if item.ID == att.ID {
			view = item
			break
		}
	}
	c.JSON(http.StatusCreated, dto.UploadResponse{Attachment: view, Attachments: state})
}

// Delete - removes the metadata row; the stored object is kept
func (h *AttachmentHandler) Delete(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	if err := rc.DeleteAttachment(c.Request.Context(), c.Param("attachmentId")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rc.Attachments.Snapshot())
}

// detectMimeType prefers the declared part type, falling back to the
// extension.
func detectMimeType(name, declared string) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
			return strings.ToLower(mt)
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt
		}
	}
	return "application/octet-stream"
}
