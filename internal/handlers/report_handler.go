package handlers

import (
	"net/http"
	"time"

	"flota_console/internal/dto"
	"flota_console/internal/fleetapi"
	"flota_console/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ============================================
// REPORT HANDLER
// ============================================

type ReportHandler struct {
	*BaseHandler
	now func() time.Time
}

func NewReportHandler(base *BaseHandler) *ReportHandler {
	return &ReportHandler{BaseHandler: base, now: time.Now}
}

func (h *ReportHandler) RegisterRoutes(r *gin.RouterGroup) {
	reports := r.Group("/reportes")
	{
		reports.GET("/kpis", h.KPIs)
		reports.GET("/mantenimiento", h.MaintenanceDashboard)
	}
}

// KPIs - summary counters with the 30-day maintenance cost
func (h *ReportHandler) KPIs(c *gin.Context) {
	live, ok := h.Session(c)
	if !ok {
		return
	}
	kpis, err := live.Client.KPIs(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, kpis)
}

// MaintenanceDashboard - defaults to the last three months
func (h *ReportHandler) MaintenanceDashboard(c *gin.Context) {
	live, ok := h.Session(c)
	if !ok {
		return
	}
	var q dto.DashboardQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}

	from, to := fleetapi.DefaultDashboardRange(h.now())
	if q.FechaInicio != "" {
		from = q.FechaInicio
	}
	if q.FechaFin != "" {
		to = q.FechaFin
	}
	if from > to {
		apperrors.HandleError(c, apperrors.NewBadRequestError("fecha_inicio debe ser anterior a fecha_fin"))
		return
	}

	dash, err := live.Client.MaintenanceDashboard(c.Request.Context(), from, to)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fecha_inicio": from,
		"fecha_fin":    to,
		"dashboard":    dash,
	})
}
