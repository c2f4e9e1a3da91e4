package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ID is an opaque backend identifier. The fleet API emits integers; the
// console keeps them as strings and writes numeric ids back as numbers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(b)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Entity is a backend-owned record: an id plus a map of primitive fields.
type Entity map[string]any

// ID returns the record id as a string, or "" when absent.
func (e Entity) ID() string {
	return stringify(e["id"])
}

// String returns the field formatted for display ("" for null).
func (e Entity) String(key string) string {
	return stringify(e[key])
}

// Clone returns a shallow copy.
func (e Entity) Clone() Entity {
	cp := make(Entity, len(e))
	for k, v := range e {
		cp[k] = v
	}
	return cp
}

// DecodeEntity decodes a JSON object keeping numbers as json.Number.
func DecodeEntity(raw json.RawMessage) (Entity, error) {
	var e Entity
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&e); err != nil {
		return nil, err
	}
	return e, nil
}

// DecodeEntities decodes a JSON array of objects keeping numbers as json.Number.
func DecodeEntities(raw json.RawMessage) ([]Entity, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return []Entity{}, nil
	}
	var items []Entity
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Entity{}
	}
	return items, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case ID:
		return string(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// ============================================
// Pagination
// ============================================

// Meta is the pagination block of a collection page.
type Meta struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

// NewMeta derives pages = ceil(total/per_page).
func NewMeta(page, perPage, total int) Meta {
	m := Meta{Page: page, PerPage: perPage, Total: total}
	m.Pages = pagesFor(total, perPage)
	return m
}

// Normalize fills pages when the backend omitted it and clamps page into
// [1, max(pages,1)].
func (m Meta) Normalize() Meta {
	if m.Pages <= 0 && m.Total > 0 && m.PerPage > 0 {
		m.Pages = pagesFor(m.Total, m.PerPage)
	}
	if m.Page < 1 {
		m.Page = 1
	}
	if m.Page > m.MaxPage() {
		m.Page = m.MaxPage()
	}
	return m
}

// MaxPage is max(pages, 1).
func (m Meta) MaxPage() int {
	if m.Pages < 1 {
		return 1
	}
	return m.Pages
}

func pagesFor(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Page is one collection page as returned by a list endpoint.
type Page struct {
	Items []Entity `json:"items"`
	Meta  Meta     `json:"meta"`
}

// ListQuery is the filter state sent with a list fetch.
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	Filters map[string]string
}

// Values renders the query string: page, per_page, search and non-empty filters.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	for k, val := range q.Filters {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}
