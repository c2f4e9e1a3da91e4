package console

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Preview is a downloaded attachment held for inline display.
type Preview struct {
	ID       string
	Name     string
	MimeType string
	Data     []byte
	Expires  time.Time
}

// Previews holds attachment bytes under short-lived ids. Entries are
// released on Release, on expiry, or on Close.
type Previews struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries map[string]*previewEntry
	closed  bool
}

type previewEntry struct {
	preview Preview
	timer   Timer
}

func NewPreviews(ttl time.Duration, clock Clock) *Previews {
	if clock == nil {
		clock = SystemClock
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Previews{ttl: ttl, clock: clock, entries: map[string]*previewEntry{}}
}

// Put stores data and returns its preview id.
func (p *Previews) Put(name, mimeType string, data []byte) Preview {
	id := uuid.NewString()
	pv := Preview{
		ID:       id,
		Name:     name,
		MimeType: mimeType,
		Data:     data,
		Expires:  p.clock.Now().Add(p.ttl),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return pv
	}
	p.entries[id] = &previewEntry{
		preview: pv,
		timer:   p.clock.AfterFunc(p.ttl, func() { p.Release(id) }),
	}
	return pv
}

func (p *Previews) Get(id string) (Preview, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return Preview{}, false
	}
	return e.preview, true
}

func (p *Previews) Release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[id]; ok {
		e.timer.Stop()
		delete(p.entries, id)
	}
}

func (p *Previews) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Close releases everything.
func (p *Previews) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for id, e := range p.entries {
		e.timer.Stop()
		delete(p.entries, id)
	}
}
