package handlers_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"flota_console/internal/console"
	"flota_console/internal/dto"
	"flota_console/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n%fake\n")

// TestAttachmentHandler_UploadOnNewRecord - a draft is created, then the file stored and registered
func TestAttachmentHandler_UploadOnNewRecord(t *testing.T) {
	t.Parallel()
	h := newHarness(t, dispatcher)

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/v1/console/ordenes/form", nil).Code)

	w := h.upload("/api/v1/console/ordenes/form/attachments", "Factura Junio.pdf", "application/pdf", pdfBytes,
		map[string]string{"tipo_adjunto": "factura"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[dto.UploadResponse](t, w)
	key := resp.Attachment.StoragePath
	assert.True(t, strings.HasPrefix(key, "ordenes/1/factura_junio_"), key)
	assert.True(t, strings.HasSuffix(key, ".pdf"), key)
	assert.Equal(t, "Factura Junio.pdf", resp.Attachment.NombreArchivo)
	assert.Equal(t, "application/pdf", resp.Attachment.MimeType)
	assert.Equal(t, "/files/"+key, resp.Attachment.URL)
	assert.Equal(t, "1", resp.Attachments.ParentID)
	assert.Len(t, resp.Attachments.Items, 1)

	assert.Equal(t, "Por definir", h.fleet.row(models.ResourceOrdenes, 1)["destino"])

	rc, err := h.store.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	stored, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, stored)

	form := decode[console.FormState](t, h.do(http.MethodGet, "/api/v1/console/ordenes/form", nil))
	assert.Equal(t, "1", form.TargetID)
}

// TestAttachmentHandler_ListAndDelete - deleting drops the row and keeps the object
func TestAttachmentHandler_ListAndDelete(t *testing.T) {
	t.Parallel()
	h := newHarness(t, admin)
	h.fleet.seed(models.ResourceMantenimiento, map[string]any{
		"vehiculo_id": 1, "descripcion": "Cambio de aceite", "fecha_programada": "2024-06-03", "estado": "PENDIENTE",
	})

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/v1/console/mantenimiento/form", dto.OpenFormRequest{ID: "1"}).Code)
	w := h.upload("/api/v1/console/mantenimiento/form/attachments", "foto.png", "image/png", []byte("\x89PNG\r\n\x1a\n"), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	att := decode[dto.UploadResponse](t, w).Attachment

	w = h.do(http.MethodGet, "/api/v1/console/mantenimiento/form/attachments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[console.AttachmentState](t, w).Items, 1)

	w = h.do(http.MethodDelete, "/api/v1/console/mantenimiento/form/attachments/"+att.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[console.AttachmentState](t, w).Items)

	exists, err := h.store.Exists(context.Background(), att.StoragePath)
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestAttachmentHandler_Rejections - size, type, missing file, closed form, unsupported screen
func TestAttachmentHandler_Rejections(t *testing.T) {
	t.Parallel()
	h := newHarness(t, admin)

	w := h.upload("/api/v1/console/combustible/form/attachments", "boleta.pdf", "application/pdf", pdfBytes, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "form not open")

	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/v1/console/combustible/form", nil).Code)

	big := bytes.Repeat([]byte{'x'}, int(console.DefaultMaxUploadSize)+1)
	w = h.upload("/api/v1/console/combustible/form/attachments", "boleta.pdf", "application/pdf", big, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = h.upload("/api/v1/console/combustible/form/attachments", "notas.txt", "text/plain", []byte("hola"), nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = h.do(http.MethodPost, "/api/v1/console/combustible/form/attachments", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, 0, h.fleet.count(models.ResourceCombustible))

	w = h.do(http.MethodGet, "/api/v1/console/vehiculos/form/attachments", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestAttachmentHandler_DetectMimeType - declared type wins unless generic
func TestAttachmentHandler_DetectMimeType(t *testing.T) {
	t.Parallel()
	h := newHarness(t, admin)
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/api/v1/console/ordenes/form", nil).Code)

	w := h.upload("/api/v1/console/ordenes/form/attachments", "guia.PDF", "application/octet-stream", pdfBytes, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", decode[dto.UploadResponse](t, w).Attachment.MimeType)
}
