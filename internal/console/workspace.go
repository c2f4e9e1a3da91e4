package console

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path"
	"sync"
	"time"

	"flota_console/internal/logger"
	"flota_console/internal/models"
	"flota_console/internal/storage"
	"flota_console/pkg/apperrors"
)

// Event kinds pushed to subscribers.
const (
	EventList        = "list"
	EventForm        = "form"
	EventAttachments = "attachments"
	EventConfirm     = "confirm"
	EventClosed      = "closed"
)

// Event is a state change of one controller.
type Event struct {
	Kind     string `json:"kind"`
	Resource string `json:"resource,omitempty"`
	State    any    `json:"state,omitempty"`
}

type WorkspaceConfig struct {
	PerPage    int
	MaxUpload  int64
	PreviewTTL time.Duration
	Clock      Clock
	Recorder   Recorder
}

// Workspace holds the controllers of one signed-in session. Consoles are
// created on first use and live until Close.
type Workspace struct {
	ctx    context.Context
	cancel context.CancelFunc

	user    models.User
	backend Backend
	store   storage.Storage
	cfg     WorkspaceConfig

	mu       sync.Mutex
	consoles map[string]*ResourceConsole
	closed   bool

	previews *Previews
	bg       sync.WaitGroup

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func NewWorkspace(parent context.Context, user models.User, backend Backend, store storage.Storage, cfg WorkspaceConfig) *Workspace {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = DefaultMaxUploadSize
	}
	ctx, cancel := context.WithCancel(parent)
	return &Workspace{
		ctx:      ctx,
		cancel:   cancel,
		user:     user,
		backend:  backend,
		store:    store,
		cfg:      cfg,
		consoles: map[string]*ResourceConsole{},
		previews: NewPreviews(cfg.PreviewTTL, cfg.Clock),
		subs:     map[int]chan Event{},
	}
}

func (w *Workspace) User() models.User { return w.user }

// Context is cancelled when the workspace closes.
func (w *Workspace) Context() context.Context { return w.ctx }

func (w *Workspace) Previews() *Previews { return w.previews }

// Console returns the controllers of a resource, creating them and issuing
// the initial list fetch on first access.
func (w *Workspace) Console(name string) (*ResourceConsole, error) {
	res, ok := models.Lookup(name)
	if !ok {
		return nil, apperrors.ErrUnknownResource
	}
	if !res.Permits(w.user, false) {
		return nil, apperrors.ErrInsufficientPermissions
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, apperrors.ErrSessionExpired
	}
	if rc, ok := w.consoles[name]; ok {
		w.mu.Unlock()
		return rc, nil
	}
	rc := w.newConsole(res)
	w.consoles[name] = rc
	w.mu.Unlock()

	rc.List.Load()
	return rc, nil
}

func (w *Workspace) newConsole(res *models.Resource) *ResourceConsole {
	rc := &ResourceConsole{Resource: res, ws: w}
	rc.List = NewListView(w.ctx, res, w.backend, ListOptions{
		PerPage:  w.cfg.PerPage,
		Clock:    w.cfg.Clock,
		Recorder: w.cfg.Recorder,
		OnChange: func(st ListState) {
			w.publish(Event{Kind: EventList, Resource: res.Name, State: st})
		},
	})
	rc.Form = NewFormModal(res, w.backend, w.cfg.Clock)
	rc.Attachments = NewAttachmentPanel(res, w.backend, w.store, rc.Form, AttachmentOptions{
		MaxSize:  w.cfg.MaxUpload,
		Clock:    w.cfg.Clock,
		Recorder: w.cfg.Recorder,
	})
	rc.Confirm = NewConfirmation(rc.deleteRecord)
	return rc
}

// Preview downloads a stored object into the preview store.
func (w *Workspace) Preview(ctx context.Context, key, name string) (Preview, error) {
	if w.store == nil {
		return Preview{}, apperrors.ErrStorage(errStorageNotConfigured)
	}
	rc, err := w.store.Get(ctx, key)
	if err != nil {
		logger.StorageLog("get", key, err)
		return Preview{}, apperrors.ErrStorage(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, w.cfg.MaxUpload+1))
	if err != nil {
		return Preview{}, apperrors.ErrStorage(err)
	}
	if int64(len(data)) > w.cfg.MaxUpload {
		return Preview{}, apperrors.ErrFileTooLarge
	}
	if name == "" {
		name = path.Base(key)
	}
	mimeType := mime.TypeByExtension(path.Ext(name))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return w.previews.Put(name, mimeType, data), nil
}

// Subscribe registers for events. The channel is closed on unsubscribe or
// when the workspace closes. Slow subscribers miss events.
func (w *Workspace) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	w.subsMu.Lock()
	if w.subs == nil {
		w.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	w.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.subsMu.Lock()
			defer w.subsMu.Unlock()
			if c, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(c)
			}
		})
	}
}

func (w *Workspace) publish(ev Event) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for _, ch := range w.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// goBackground runs fn on the workspace context, tracked by Flush.
func (w *Workspace) goBackground(fn func(ctx context.Context)) {
	w.bg.Add(1)
	go func() {
		defer w.bg.Done()
		fn(w.ctx)
	}()
}

// Flush waits for background loads and list fetches.
func (w *Workspace) Flush() {
	w.bg.Wait()
	w.mu.Lock()
	consoles := make([]*ResourceConsole, 0, len(w.consoles))
	for _, rc := range w.consoles {
		consoles = append(consoles, rc)
	}
	w.mu.Unlock()
	for _, rc := range consoles {
		rc.List.Flush()
	}
}

// Close cancels outstanding work and releases previews and subscribers.
// It does not wait; it may run from inside a fetch that hit a 401.
func (w *Workspace) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	consoles := w.consoles
	w.mu.Unlock()

	w.cancel()
	for _, rc := range consoles {
		rc.List.Close()
	}
	w.previews.Close()

	w.subsMu.Lock()
	for id, ch := range w.subs {
		select {
		case ch <- Event{Kind: EventClosed}:
		default:
		}
		close(ch)
		delete(w.subs, id)
	}
	w.subs = nil
	w.subsMu.Unlock()
}
