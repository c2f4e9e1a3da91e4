package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flota_console/internal/fleetapi"
	"flota_console/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReportHandler_KPIs - summary counters merged with the monthly cost
func TestReportHandler_KPIs(t *testing.T) {
	t.Parallel()
	h := newHarness(t, driver)
	seedVehicles(h, 3)

	w := h.do(http.MethodGet, "/api/v1/reportes/kpis", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode[map[string]any](t, w)
	assert.EqualValues(t, 3, body["total_vehiculos"])
	assert.EqualValues(t, 3, body["mantenimientos_pendientes"])
	assert.Equal(t, "1500", body["costo_total_clp"])
	assert.EqualValues(t, 30, body["periodo_dias"])
}

type dashboardBody struct {
	FechaInicio string                      `json:"fecha_inicio"`
	FechaFin    string                      `json:"fecha_fin"`
	Dashboard   models.MaintenanceDashboard `json:"dashboard"`
}

// TestReportHandler_Dashboard - explicit and default date ranges
func TestReportHandler_Dashboard(t *testing.T) {
	t.Parallel()
	h := newHarness(t, dispatcher)

	w := h.do(http.MethodGet, "/api/v1/reportes/mantenimiento?fecha_inicio=2024-01-01&fecha_fin=2024-03-31", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, h.fleet.lastQuery(), "fecha_inicio=2024-01-01")

	body := decode[dashboardBody](t, w)
	assert.Equal(t, "2024-01-01", body.FechaInicio)
	assert.Equal(t, "2024-03-31", body.FechaFin)
	assert.Equal(t, 4, body.Dashboard.KPIs.TotalItemsPeriodo)
	assert.Equal(t, "99000", body.Dashboard.KPIs.TotalGastoPeriodo.String())
	require.Len(t, body.Dashboard.GraficaCategorias, 1)
	assert.Equal(t, "PREVENTIVO", body.Dashboard.GraficaCategorias[0].Name)

	from, to := fleetapi.DefaultDashboardRange(time.Now())
	w = h.do(http.MethodGet, "/api/v1/reportes/mantenimiento", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	def := decode[map[string]any](t, w)
	assert.Equal(t, from, def["fecha_inicio"])
	assert.Equal(t, to, def["fecha_fin"])
}

// TestReportHandler_DashboardRejects - malformed and reversed ranges
func TestReportHandler_DashboardRejects(t *testing.T) {
	t.Parallel()
	h := newHarness(t, admin)

	w := h.do(http.MethodGet, "/api/v1/reportes/mantenimiento?fecha_inicio=2024-13-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/api/v1/reportes/mantenimiento?fecha_inicio=2024-05-01&fecha_fin=2024-04-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.serve(httptest.NewRequest(http.MethodGet, "/api/v1/reportes/kpis", nil), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
