package console

import (
	"context"
	"time"

	"flota_console/internal/models"
)

// Backend is the part of the fleet API the controllers talk to.
// *fleetapi.Client satisfies it.
type Backend interface {
	List(ctx context.Context, path string, q models.ListQuery) (models.Page, error)
	Get(ctx context.Context, path string) (models.Entity, error)
	Create(ctx context.Context, path string, payload map[string]any) (models.Entity, error)
	Update(ctx context.Context, path string, payload map[string]any) (models.Entity, error)
	Delete(ctx context.Context, path string) error
	Reference(ctx context.Context, ref models.Reference) ([]models.Entity, error)
	ListAttachments(ctx context.Context, path string) ([]models.Attachment, error)
	CreateAttachment(ctx context.Context, path string, in models.AttachmentInput) (models.Attachment, error)
}

// Recorder receives controller counters. *metrics.Recorder satisfies it.
type Recorder interface {
	ListFetch(resource, outcome string)
	Upload(resource, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ListFetch(string, string) {}
func (nopRecorder) Upload(string, string)    {}

// Clock abstracts timers so debounce can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}
