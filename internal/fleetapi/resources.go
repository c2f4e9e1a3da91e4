package fleetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"flota_console/internal/models"
	"flota_console/pkg/apperrors"
)

// ============================================
// Collections
// ============================================

// List fetches one page of a collection. Endpoints that answer without a
// meta block are treated as a single page.
func (c *Client) List(ctx context.Context, path string, q models.ListQuery) (models.Page, error) {
	env, err := c.do(ctx, http.MethodGet, path, q.Values(), nil)
	if err != nil {
		return models.Page{}, err
	}

	items, err := models.DecodeEntities(env.Data)
	if err != nil {
		return models.Page{}, badPayload(err)
	}

	meta, ok, err := decodeMeta(env.Meta)
	if err != nil {
		return models.Page{}, badPayload(err)
	}
	if !ok {
		perPage := q.PerPage
		if perPage <= 0 || perPage < len(items) {
			perPage = len(items)
		}
		meta = models.NewMeta(1, perPage, len(items))
	}
	return models.Page{Items: items, Meta: meta.Normalize()}, nil
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, path string) (models.Entity, error) {
	env, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(env.Data)
}

// Create POSTs a record and returns the server's canonical copy.
func (c *Client) Create(ctx context.Context, path string, payload map[string]any) (models.Entity, error) {
	env, err := c.do(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeRecord(env.Data)
}

// Update PUTs a record and returns the server's canonical copy.
func (c *Client) Update(ctx context.Context, path string, payload map[string]any) (models.Entity, error) {
	env, err := c.do(ctx, http.MethodPut, path, nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeRecord(env.Data)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// Reference loads a lookup list used by form selects.
func (c *Client) Reference(ctx context.Context, ref models.Reference) ([]models.Entity, error) {
	env, err := c.do(ctx, http.MethodGet, ref.Path, ref.Query, nil)
	if err != nil {
		return nil, err
	}
	items, err := models.DecodeEntities(env.Data)
	if err != nil {
		return nil, badPayload(err)
	}
	return items, nil
}

// ============================================
// Attachments
// ============================================

func (c *Client) ListAttachments(ctx context.Context, path string) ([]models.Attachment, error) {
	env, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var items []models.Attachment
	if len(bytes.TrimSpace(env.Data)) > 0 {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, badPayload(err)
		}
	}
	if items == nil {
		items = []models.Attachment{}
	}
	return items, nil
}

func (c *Client) CreateAttachment(ctx context.Context, path string, in models.AttachmentInput) (models.Attachment, error) {
	env, err := c.do(ctx, http.MethodPost, path, nil, in)
	if err != nil {
		return models.Attachment{}, err
	}
	var att models.Attachment
	if len(bytes.TrimSpace(env.Data)) > 0 {
		if err := json.Unmarshal(env.Data, &att); err != nil {
			return models.Attachment{}, badPayload(err)
		}
	}
	if att.StoragePath == "" {
		att.StoragePath = in.StoragePath
		att.NombreArchivo = in.NombreArchivo
		att.MimeType = in.MimeType
	}
	return att, nil
}

// ============================================
// Helpers
// ============================================

func decodeRecord(raw json.RawMessage) (models.Entity, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return models.Entity{}, nil
	}
	// Some endpoints answer with a one-element array.
	if bytes.TrimSpace(raw)[0] == '[' {
		items, err := models.DecodeEntities(raw)
		if err != nil {
			return nil, badPayload(err)
		}
		if len(items) == 0 {
			return models.Entity{}, nil
		}
		return items[0], nil
	}
	e, err := models.DecodeEntity(raw)
	if err != nil {
		return nil, badPayload(err)
	}
	return e, nil
}

func decodeMeta(raw json.RawMessage) (models.Meta, bool, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return models.Meta{}, false, nil
	}
	var m models.Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return models.Meta{}, false, err
	}
	return m, true, nil
}

func badPayload(err error) error {
	return apperrors.ErrUpstream(http.StatusBadGateway, "Respuesta inválida del servidor").WithError(fmt.Errorf("decode: %w", err))
}

// Query builds url.Values from alternating key/value pairs.
func Query(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			v.Set(kv[i], kv[i+1])
		}
	}
	return v
}
