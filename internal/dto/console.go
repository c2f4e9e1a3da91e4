package dto

import (
	"time"

	"flota_console/internal/console"
	"flota_console/internal/models"
)

// ============================================
// Session
// ============================================

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SSORequest struct {
	Token string `json:"token" validate:"required"`
}

type SessionResponse struct {
	SessionID string      `json:"session_id,omitempty"`
	User      models.User `json:"user"`
	CanWrite  bool        `json:"can_write"`
	IsAdmin   bool        `json:"is_admin"`
	Resources []string    `json:"resources"`
}

// ============================================
// List
// ============================================

type SearchRequest struct {
	Search string `json:"search" validate:"max=200"`
}

type FiltersRequest struct {
	Filters map[string]string `json:"filters"`
	Replace bool              `json:"replace"`
}

type PageRequest struct {
	Page int `json:"page" validate:"required"`
}

type PageResponse struct {
	Changed bool              `json:"changed"`
	List    console.ListState `json:"list"`
}

// ============================================
// Form
// ============================================

type OpenFormRequest struct {
	ID models.ID `json:"id"`
}

type UpdateFormRequest struct {
	Fields map[string]any `json:"fields" validate:"required"`
}

type SubmitResponse struct {
	Saved models.Entity     `json:"saved"`
	Form  console.FormState `json:"form"`
}

type DraftResponse struct {
	ID   string            `json:"id"`
	Form console.FormState `json:"form"`
}

// ============================================
// Attachments / previews
// ============================================

type UploadResponse struct {
	Attachment  console.AttachmentView  `json:"attachment"`
	Attachments console.AttachmentState `json:"attachments"`
}

type PreviewQuery struct {
	Path string `form:"path" validate:"required"`
	Name string `form:"name"`
}

type PreviewResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	MimeType string    `json:"mime_type"`
	URL      string    `json:"url"`
	Expires  time.Time `json:"expires"`
}

// ============================================
// Confirmation
// ============================================

type ConfirmRequest struct {
	ID models.ID `json:"id" validate:"required"`
}

// ============================================
// Reports
// ============================================

// VehicleDetailQuery narrows the trip history of the vehicle detail view.
type VehicleDetailQuery struct {
	Limit      int    `form:"limit" validate:"omitempty,gte=1,lte=100"`
	FechaDesde string `form:"fecha_desde" validate:"omitempty,is-date"`
	FechaHasta string `form:"fecha_hasta" validate:"omitempty,is-date"`
}

type DashboardQuery struct {
	FechaInicio string `form:"fecha_inicio" validate:"omitempty,is-date"`
	FechaFin    string `form:"fecha_fin" validate:"omitempty,is-date"`
}
