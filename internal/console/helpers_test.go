package console_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"flota_console/internal/console"
	"flota_console/internal/models"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ============================================
// Clock
// ============================================

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 3, 10, 30, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) console.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward and runs due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// ============================================
// Fleet API
// ============================================

type call struct {
	Method  string
	Path    string
	Query   models.ListQuery
	Payload map[string]any
}

// memBackend is an in-memory fleet API. Hooks override single operations.
type memBackend struct {
	mu      sync.Mutex
	calls   []call
	records map[string][]models.Entity
	atts    map[string][]models.Attachment
	nextID  int

	listHook      func(ctx context.Context, path string, q models.ListQuery) (models.Page, error)
	createHook    func(path string, payload map[string]any) (models.Entity, error)
	updateHook    func(path string, payload map[string]any) (models.Entity, error)
	deleteHook    func(path string) error
	createAttHook func(path string, in models.AttachmentInput) (models.Attachment, error)
	refHook       func(ref models.Reference) ([]models.Entity, error)
}

func newMemBackend() *memBackend {
	return &memBackend{
		records: map[string][]models.Entity{},
		atts:    map[string][]models.Attachment{},
		nextID:  100,
	}
}

func (b *memBackend) record(c call) {
	b.mu.Lock()
	b.calls = append(b.calls, c)
	b.mu.Unlock()
}

func (b *memBackend) Calls(method string) []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []call
	for _, c := range b.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (b *memBackend) seed(path string, rows ...models.Entity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[path] = append(b.records[path], rows...)
}

func (b *memBackend) List(ctx context.Context, path string, q models.ListQuery) (models.Page, error) {
	b.record(call{Method: "LIST", Path: path, Query: q})
	if b.listHook != nil {
		return b.listHook(ctx, path, q)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var rows []models.Entity
	for _, e := range b.records[path] {
		if q.Search != "" && !matches(e, q.Search) {
			continue
		}
		ok := true
		for k, v := range q.Filters {
			if e.String(k) != v {
				ok = false
			}
		}
		if ok {
			rows = append(rows, e)
		}
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	meta := models.NewMeta(q.Page, perPage, len(rows))
	start := (q.Page - 1) * perPage
	if start > len(rows) {
		start = len(rows)
	}
	end := min(start+perPage, len(rows))
	items := append([]models.Entity{}, rows[start:end]...)
	return models.Page{Items: items, Meta: meta.Normalize()}, nil
}

func matches(e models.Entity, q string) bool {
	for _, v := range e {
		s, ok := v.(string)
		if ok && strings.Contains(strings.ToLower(s), strings.ToLower(q)) {
			return true
		}
	}
	return false
}

func (b *memBackend) Get(ctx context.Context, path string) (models.Entity, error) {
	b.record(call{Method: "GET", Path: path})
	b.mu.Lock()
	defer b.mu.Unlock()
	for base, rows := range b.records {
		for _, e := range rows {
			if base+e.ID() == path {
				return e, nil
			}
		}
	}
	return nil, errors.New("not found")
}

// canonical mimics the backend's JSON round-trip.
func canonical(payload map[string]any) models.Entity {
	raw, _ := json.Marshal(payload)
	e, _ := models.DecodeEntity(raw)
	return e
}

func (b *memBackend) Create(ctx context.Context, path string, payload map[string]any) (models.Entity, error) {
	b.record(call{Method: "POST", Path: path, Payload: payload})
	if b.createHook != nil {
		return b.createHook(path, payload)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	e := canonical(payload)
	e["id"] = json.Number(strconv.Itoa(b.nextID))
	b.records[path] = append(b.records[path], e)
	return e.Clone(), nil
}

func (b *memBackend) Update(ctx context.Context, path string, payload map[string]any) (models.Entity, error) {
	b.record(call{Method: "PUT", Path: path, Payload: payload})
	if b.updateHook != nil {
		return b.updateHook(path, payload)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for base, rows := range b.records {
		for i, e := range rows {
			if base+e.ID() == path {
				next := canonical(payload)
				next["id"] = e["id"]
				rows[i] = next
				return next.Clone(), nil
			}
		}
	}
	return nil, errors.New("not found")
}

func (b *memBackend) Delete(ctx context.Context, path string) error {
	b.record(call{Method: "DELETE", Path: path})
	if b.deleteHook != nil {
		return b.deleteHook(path)
	}
	return nil
}

func (b *memBackend) Reference(ctx context.Context, ref models.Reference) ([]models.Entity, error) {
	b.record(call{Method: "REF", Path: ref.Path})
	if b.refHook != nil {
		return b.refHook(ref)
	}
	return []models.Entity{{"id": json.Number("1")}}, nil
}

func (b *memBackend) ListAttachments(ctx context.Context, path string) ([]models.Attachment, error) {
	b.record(call{Method: "LIST_ATT", Path: path})
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Attachment{}, b.atts[path]...), nil
}

func (b *memBackend) CreateAttachment(ctx context.Context, path string, in models.AttachmentInput) (models.Attachment, error) {
	b.record(call{Method: "POST_ATT", Path: path, Payload: map[string]any{"storage_path": in.StoragePath}})
	if b.createAttHook != nil {
		return b.createAttHook(path, in)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	att := models.Attachment{
		ID:            models.ID(strconv.Itoa(b.nextID)),
		StoragePath:   in.StoragePath,
		NombreArchivo: in.NombreArchivo,
		MimeType:      in.MimeType,
	}
	b.atts[path] = append([]models.Attachment{att}, b.atts[path]...)
	return att, nil
}

// ============================================
// Storage
// ============================================

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
	saves   int
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Save(ctx context.Context, key string, r io.Reader, contentType string) error {
	s.mu.Lock()
	s.saves++
	err := s.saveErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

func (s *memStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memStore) PublicURL(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty key")
	}
	return "https://cdn.test/" + key, nil
}

func (s *memStore) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return s.PublicURL(key)
}

func (s *memStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func mustResource(t *testing.T, name string) *models.Resource {
	t.Helper()
	res, ok := models.Lookup(name)
	if !ok {
		t.Fatalf("unknown resource %s", name)
	}
	return res
}
