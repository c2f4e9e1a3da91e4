package handlers

import (
	"bytes"
	"mime"
	"net/http"
	"time"

	"flota_console/internal/export"
	"flota_console/internal/logger"

	"github.com/gin-gonic/gin"
)

// ExportRecorder counts finished exports.
type ExportRecorder interface {
	Export(resource, format string)
}

// ============================================
// EXPORT HANDLER
// ============================================

type ExportHandler struct {
	*BaseHandler
	maxRows  int
	recorder ExportRecorder
	now      func() time.Time
}

func NewExportHandler(base *BaseHandler, maxRows int, recorder ExportRecorder) *ExportHandler {
	return &ExportHandler{
		BaseHandler: base,
		maxRows:     maxRows,
		recorder:    recorder,
		now:         time.Now,
	}
}

func (h *ExportHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/console/:resource/export.xlsx", h.Export(export.FormatXLSX))
	r.GET("/console/:resource/export.pdf", h.Export(export.FormatPDF))
}

// Export - every page of the list under its current search and filters
func (h *ExportHandler) Export(format export.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc, live, ok := h.Console(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		now := h.now()

		table, err := export.Collect(ctx, live.Client, rc.Resource, rc.List.Query(), h.maxRows, now)
		if err != nil {
			h.HandleServiceError(c, err)
			return
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, format, table); err != nil {
			h.HandleServiceError(c, err)
			return
		}

		if h.recorder != nil {
			h.recorder.Export(rc.Resource.Name, string(format))
		}
		logger.CtxInfo(ctx, "Export generated",
			"resource", rc.Resource.Name,
			"format", string(format),
			"rows", len(table.Rows),
			"truncated", table.Truncated,
		)

		name := export.FileName(rc.Resource.Name, format, now)
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
	}
}
