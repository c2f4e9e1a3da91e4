package handlers

import (
	"net/http"

	"flota_console/internal/console"
	"flota_console/internal/dto"
	"flota_console/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ============================================
// LIST HANDLER
// ============================================

type ListHandler struct {
	*BaseHandler
}

func NewListHandler(base *BaseHandler) *ListHandler {
	return &ListHandler{BaseHandler: base}
}

func (h *ListHandler) RegisterRoutes(r *gin.RouterGroup) {
	list := r.Group("/console")
	{
		list.GET("/:resource", h.GetList)
		list.GET("/:resource/state", h.GetState)
		list.PATCH("/:resource/search", h.SetSearch)
		list.PATCH("/:resource/filters", h.SetFilters)
		list.POST("/:resource/page", h.GoToPage)
		list.POST("/:resource/refresh", h.Refresh)
		list.DELETE("/:resource/error", h.DismissError)
		list.GET("/:resource/detail/:id", h.Detail)
	}
}

// settled waits for in-flight fetches when the caller asks with ?wait=true.
func settled(c *gin.Context, rc *console.ResourceConsole) console.ListState {
	if c.Query("wait") == "true" {
		rc.List.Flush()
	}
	return rc.List.Snapshot()
}

// GetList - current list snapshot
func (h *ListHandler) GetList(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, settled(c, rc))
}

// GetState - list, form, attachments and confirmation together
func (h *ListHandler) GetState(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	if c.Query("wait") == "true" {
		rc.List.Flush()
	}
	c.JSON(http.StatusOK, rc.Snapshot())
}

// SetSearch - debounced search text
func (h *ListHandler) SetSearch(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	var req dto.SearchRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	rc.List.SetSearch(req.Search)
	c.JSON(http.StatusAccepted, rc.List.Snapshot())
}

// SetFilters - merges or replaces filter values and refetches from page 1
func (h *ListHandler) SetFilters(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	var req dto.FiltersRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	if err := rc.List.SetFilters(req.Filters, req.Replace); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, settled(c, rc))
}

// GoToPage - out-of-range pages are ignored
func (h *ListHandler) GoToPage(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	var req dto.PageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}
	changed := rc.List.GoToPage(req.Page)
	c.JSON(http.StatusOK, dto.PageResponse{Changed: changed, List: settled(c, rc)})
}

// Refresh - refetches the current page
func (h *ListHandler) Refresh(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	rc.List.Refresh()
	c.JSON(http.StatusOK, settled(c, rc))
}

// DismissError - clears the list error banner
func (h *ListHandler) DismissError(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	rc.List.DismissError()
	c.JSON(http.StatusOK, rc.List.Snapshot())
}

// Detail - a vehicle with its finished trips
func (h *ListHandler) Detail(c *gin.Context) {
	rc, _, ok := h.Console(c)
	if !ok {
		return
	}
	var q dto.VehicleDetailQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}
	if q.FechaDesde != "" && q.FechaHasta != "" && q.FechaDesde > q.FechaHasta {
		apperrors.HandleError(c, apperrors.NewBadRequestError("fecha_desde debe ser anterior a fecha_hasta"))
		return
	}
	detail, err := rc.VehicleDetail(c.Request.Context(), c.Param("id"), console.TripQuery{
		Limit:      q.Limit,
		FechaDesde: q.FechaDesde,
		FechaHasta: q.FechaHasta,
	})
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}
