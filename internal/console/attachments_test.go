package console_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"flota_console/internal/console"
	"flota_console/internal/models"
	"flota_console/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panelFixture struct {
	backend *memBackend
	store   *memStore
	clock   *fakeClock
	form    *console.FormModal
	panel   *console.AttachmentPanel
}

func newPanel(t *testing.T, resource string) *panelFixture {
	t.Helper()
	res := mustResource(t, resource)
	fx := &panelFixture{backend: newMemBackend(), store: newMemStore(), clock: newFakeClock()}
	fx.form = console.NewFormModal(res, fx.backend, fx.clock)
	fx.panel = console.NewAttachmentPanel(res, fx.backend, fx.store, fx.form, console.AttachmentOptions{Clock: fx.clock})
	return fx
}

// openMaintenance opens record 12 for editing and binds the panel to it.
func (fx *panelFixture) openMaintenance(t *testing.T) {
	t.Helper()
	require.NoError(t, fx.form.OpenEdit(models.Entity{
		"id": json.Number("12"), "vehiculo_id": json.Number("3"), "descripcion": "Frenos",
		"fecha_programada": "2024-06-10", "estado": "PROGRAMADO",
	}))
	fx.panel.Bind("12")
}

func file(name string, size int) console.FileUpload {
	return console.FileUpload{
		Name:     name,
		MimeType: "application/pdf",
		Size:     int64(size),
		Body:     bytes.NewReader(make([]byte, size)),
	}
}

// TestUpload_SizeLimit - exactly 10 MiB passes, one more byte does not
func TestUpload_SizeLimit(t *testing.T) {
	t.Parallel()

	fx := newPanel(t, models.ResourceMantenimiento)
	fx.openMaintenance(t)

	_, err := fx.panel.Upload(context.Background(), file("informe.pdf", int(console.DefaultMaxUploadSize)+1))
	assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)
	assert.Equal(t, 0, fx.store.Saves())
	assert.Empty(t, fx.backend.Calls(""))
	assert.Empty(t, fx.panel.Snapshot().Items)
	assert.Equal(t, "El archivo es muy grande (máx 10MB).", fx.panel.Snapshot().Error)

	att, err := fx.panel.Upload(context.Background(), file("informe.pdf", int(console.DefaultMaxUploadSize)))
	require.NoError(t, err)
	assert.Equal(t, 1, fx.store.Saves())
	assert.Equal(t, "informe.pdf", att.NombreArchivo)
	assert.Empty(t, fx.panel.Snapshot().Error)
}

// TestUpload_UnknownSizeIsBuffered - a 15 MB stream of unknown size is rejected before storage
func TestUpload_UnknownSizeIsBuffered(t *testing.T) {
	t.Parallel()

	fx := newPanel(t, models.ResourceMantenimiento)
	fx.openMaintenance(t)

	_, err := fx.panel.Upload(context.Background(), console.FileUpload{
		Name: "video.mp4", MimeType: "video/mp4", Size: -1,
		Body: bytes.NewReader(make([]byte, 15_000_000)),
	})
	assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)
	assert.Equal(t, 0, fx.store.Saves())
	assert.Empty(t, fx.backend.Calls(""))
}

// TestUpload_PathAndMetadata - object key format and the registered row
func TestUpload_PathAndMetadata(t *testing.T) {
	t.Parallel()

	fx := newPanel(t, models.ResourceMantenimiento)
	fx.openMaintenance(t)

	f := file("Factura Taller (Junio).PDF", 2048)
	f.Kind = "cierre"
	att, err := fx.panel.Upload(context.Background(), f)
	require.NoError(t, err)

	ms := fx.clock.Now().UnixMilli()
	want := "mantenimiento/12/factura_taller_junio__" + itoa(ms) + ".PDF"
	assert.Equal(t, want, att.StoragePath)

	posts := fx.backend.Calls("POST_ATT")
	require.Len(t, posts, 1)
	assert.Equal(t, "/api/mantenimiento/12/adjuntos", posts[0].Path)
	assert.Equal(t, want, posts[0].Payload["storage_path"])

	st := fx.panel.Snapshot()
	require.Len(t, st.Items, 1)
	assert.Equal(t, "https://cdn.test/"+want, st.Items[0].URL)
	assert.False(t, st.Uploading)
}

// TestUpload_StorageFailureSkipsMetadata - nothing is registered when the object write fails
func TestUpload_StorageFailureSkipsMetadata(t *testing.T) {
	t.Parallel()

	fx := newPanel(t, models.ResourceMantenimiento)
	fx.openMaintenance(t)
	fx.store.saveErr = errors.New("bucket not found")

	_, err := fx.panel.Upload(context.Background(), file("a.pdf", 10))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageError))
	assert.Empty(t, fx.backend.Calls("POST_ATT"))
	assert.Contains(t, fx.panel.Snapshot().Error, "bucket not found")
}

// TestUpload_MetadataFailureLeavesObject - the stored object stays when registration fails
func TestUpload_MetadataFailureLeavesObject(t *testing.T) {
	t.Parallel()

	fx := newPanel(t, models.ResourceMantenimiento)
	fx.openMaintenance(t)
	fx.backend.createAttHook = func(path string, in models.AttachmentInput) (models.Attachment, error) {
		return models.Attachment{}, apperrors.ErrUpstream(500, "")
	}

	_, err := fx.panel.Upload(context.Background(), file("a.pdf", 10))
	require.Error(t, err)
	assert.Equal(t, 1, fx.store.Saves())
	assert.Len(t, fx.store.objects, 1)
	st := fx.panel.Snapshot()
	assert.Empty(t, st.Items)
	assert.Equal(t, "Error 500: Error desconocido", st.Error)
}

// TestUpload_CreatesDraft - uploading on a new record creates it first
func TestUpload_CreatesDraft(t *testing.T) {
	t.Parallel()

	fx := newPanel(t, models.ResourceOrdenes)
	require.NoError(t, fx.form.OpenNew())

	att, err := fx.panel.Upload(context.Background(), file("guia.pdf", 100))
	require.NoError(t, err)

	posts := fx.backend.Calls("POST")
	require.Len(t, posts, 1)
	id := fx.form.TargetID()
	require.NotEmpty(t, id)
	assert.True(t, strings.HasPrefix(att.StoragePath, "ordenes/"+id+"/guia_"))
	assert.Equal(t, id, fx.panel.Snapshot().ParentID)

	// The second upload reuses the draft.
	_, err = fx.panel.Upload(context.Background(), file("guia2.pdf", 100))
	require.NoError(t, err)
	assert.Len(t, fx.backend.Calls("POST"), 1)
	assert.Len(t, fx.panel.Snapshot().Items, 2)
	assert.Equal(t, "guia2.pdf", fx.panel.Snapshot().Items[0].NombreArchivo)
}

// TestAttachments_DeleteKeepsObject - the row goes away, the object stays
func TestAttachments_DeleteKeepsObject(t *testing.T) {
	t.Parallel()

	fx := newPanel(t, models.ResourceMantenimiento)
	fx.openMaintenance(t)
	att, err := fx.panel.Upload(context.Background(), file("a.pdf", 10))
	require.NoError(t, err)

	require.NoError(t, fx.panel.Delete(context.Background(), att.ID.String()))

	dels := fx.backend.Calls("DELETE")
	require.Len(t, dels, 1)
	assert.Equal(t, "/api/mantenimiento/adjuntos/"+att.ID.String(), dels[0].Path)
	assert.Empty(t, fx.panel.Snapshot().Items)
	ok, _ := fx.store.Exists(context.Background(), att.StoragePath)
	assert.True(t, ok)
	_, found := fx.panel.Find(att.ID.String())
	assert.False(t, found)
}

// TestAttachments_Load - list of the bound parent
func TestAttachments_Load(t *testing.T) {
	t.Parallel()

	fx := newPanel(t, models.ResourceMantenimiento)
	fx.backend.atts["/api/mantenimiento/12/adjuntos"] = []models.Attachment{
		{ID: "1", StoragePath: "mantenimiento/12/x_1.pdf", NombreArchivo: "x.pdf"},
	}
	fx.panel.Bind("12")
	require.NoError(t, fx.panel.Load(context.Background()))

	st := fx.panel.Snapshot()
	require.Len(t, st.Items, 1)
	assert.Equal(t, "https://cdn.test/mantenimiento/12/x_1.pdf", st.Items[0].URL)
	assert.False(t, st.Loading)
}

// TestAttachments_NotSupported - resources without attachments reject every operation
func TestAttachments_NotSupported(t *testing.T) {
	t.Parallel()

	fx := newPanel(t, models.ResourceVehiculos)
	_, err := fx.panel.Upload(context.Background(), file("a.pdf", 1))
	assert.ErrorIs(t, err, apperrors.ErrNoAttachments)
	assert.ErrorIs(t, fx.panel.Load(context.Background()), apperrors.ErrNoAttachments)
}
