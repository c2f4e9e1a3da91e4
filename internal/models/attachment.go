package models

// Attachment is the metadata row of a stored file. It belongs to exactly one
// order, maintenance job or fuel charge.
type Attachment struct {
	ID            ID     `json:"id"`
	StoragePath   string `json:"storage_path"`
	NombreArchivo string `json:"nombre_archivo"`
	MimeType      string `json:"mime_type"`
	CreatedAt     string `json:"created_at,omitempty"`
	EntidadTipo   string `json:"entidad_tipo,omitempty"`
	EntidadID     ID     `json:"entidad_id,omitempty"`
	TipoAdjunto   string `json:"tipo_adjunto,omitempty"`
	URL           string `json:"url,omitempty"`
}

// DisplayName falls back to the storage path when the original name is missing.
func (a Attachment) DisplayName() string {
	if a.NombreArchivo != "" {
		return a.NombreArchivo
	}
	return a.StoragePath
}

// AttachmentInput is the metadata registered after a successful upload.
type AttachmentInput struct {
	StoragePath   string `json:"storage_path"`
	NombreArchivo string `json:"nombre_archivo"`
	MimeType      string `json:"mime_type"`
	TipoAdjunto   string `json:"tipo_adjunto,omitempty"`
}
