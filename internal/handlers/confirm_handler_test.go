package handlers_test

import (
	"net/http"
	"testing"

	"flota_console/internal/console"
	"flota_console/internal/dto"
	"flota_console/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfirmHandler_DeleteFlow - request, accept, the row is gone
func TestConfirmHandler_DeleteFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t, dispatcher)
	h.fleet.seed(models.ResourceOrdenes, map[string]any{"origen": "Talca", "destino": "Curicó", "estado": "asignada"})
	h.fleet.seed(models.ResourceOrdenes, map[string]any{"origen": "Linares", "destino": "Talca", "estado": "completada"})

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/console/ordenes?wait=true", nil).Code)

	w := h.do(http.MethodPost, "/api/v1/console/ordenes/confirm", dto.ConfirmRequest{ID: "1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st := decode[console.ConfirmState](t, w)
	assert.Equal(t, console.ConfirmPending, st.Status)
	assert.Equal(t, "Órdenes de servicio #1 (Talca)", st.Label)

	w = h.do(http.MethodPost, "/api/v1/console/ordenes/confirm", dto.ConfirmRequest{ID: "1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/api/v1/console/ordenes/confirm/accept", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, console.ConfirmIdle, decode[console.ConfirmState](t, w).Status)
	assert.Equal(t, 1, h.fleet.count(models.ResourceOrdenes))

	list := decode[console.ListState](t, h.do(http.MethodGet, "/api/v1/console/ordenes?wait=true", nil))
	assert.Len(t, list.Items, 1)
}

// TestConfirmHandler_Guards - locked rows, unknown rows and nothing to cancel
func TestConfirmHandler_Guards(t *testing.T) {
	t.Parallel()
	h := newHarness(t, admin)
	h.fleet.seed(models.ResourceOrdenes, map[string]any{"origen": "Linares", "estado": "completada"})

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/console/ordenes?wait=true", nil).Code)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/api/v1/console/ordenes/confirm", dto.ConfirmRequest{ID: "1"}).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/v1/console/ordenes/confirm", dto.ConfirmRequest{ID: "99"}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/v1/console/ordenes/confirm", map[string]any{}).Code)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/api/v1/console/ordenes/confirm/cancel", nil).Code)
}

// TestConfirmHandler_FailureStaysPending - a rejected delete can be retried or cancelled
func TestConfirmHandler_FailureStaysPending(t *testing.T) {
	t.Parallel()
	h := newHarness(t, admin)
	h.fleet.seed(models.ResourceVehiculos, map[string]any{"placa": "AB1234", "marca": "Volvo", "modelo": "FH", "ano": 2020, "tipo": "camion"})
	h.fleet.failOn(http.MethodDelete, "/api/vehiculos/1", http.StatusConflict)

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/console/vehiculos?wait=true", nil).Code)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/v1/console/vehiculos/confirm", dto.ConfirmRequest{ID: "1"}).Code)

	w := h.do(http.MethodPost, "/api/v1/console/vehiculos/confirm/accept", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Fallo simulado", decode[errorBody](t, w).Error.Message)

	st := decode[console.ConfirmState](t, h.do(http.MethodGet, "/api/v1/console/vehiculos/confirm", nil))
	assert.Equal(t, console.ConfirmPending, st.Status)
	assert.Equal(t, "Fallo simulado", st.Error)

	w = h.do(http.MethodPost, "/api/v1/console/vehiculos/confirm/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, console.ConfirmIdle, decode[console.ConfirmState](t, w).Status)
	assert.Equal(t, 1, h.fleet.count(models.ResourceVehiculos))
}
