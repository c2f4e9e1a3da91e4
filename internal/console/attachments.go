package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"flota_console/internal/logger"
	"flota_console/internal/models"
	"flota_console/internal/storage"
	"flota_console/pkg/apperrors"
)

// DefaultMaxUploadSize is 10 MiB; a file of exactly this size is accepted.
const DefaultMaxUploadSize int64 = 10 * 1024 * 1024

var errStorageNotConfigured = errors.New("storage not configured")

// Upload outcomes.
const (
	uploadOK       = "ok"
	uploadRejected = "rejected"
	uploadStorage  = "storage_error"
	uploadOrphan   = "orphan"
)

// FileUpload is one selected file. Size < 0 means unknown; the body is then
// buffered up to the limit before anything leaves the process.
type FileUpload struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
	Kind     string // tipo_adjunto, optional
}

// AttachmentView is an attachment with its derived link.
type AttachmentView struct {
	models.Attachment
	URL string `json:"url"`
}

// AttachmentState is a point-in-time copy of an attachment panel.
type AttachmentState struct {
	Resource  string           `json:"resource"`
	ParentID  string           `json:"parent_id,omitempty"`
	Items     []AttachmentView `json:"items"`
	Loading   bool             `json:"loading"`
	Uploading bool             `json:"uploading"`
	Error     string           `json:"error,omitempty"`
}

type AttachmentOptions struct {
	MaxSize  int64
	Clock    Clock
	Recorder Recorder
}

// AttachmentPanel uploads files for the record open in a form and keeps the
// record's attachment list.
type AttachmentPanel struct {
	mu sync.Mutex

	res      *models.Resource
	backend  Backend
	store    storage.Storage
	form     *FormModal
	maxSize  int64
	clock    Clock
	recorder Recorder

	parentID  string
	items     []models.Attachment
	loading   bool
	uploading bool
	errMsg    string
	seq       uint64
}

func NewAttachmentPanel(res *models.Resource, backend Backend, store storage.Storage, form *FormModal, opts AttachmentOptions) *AttachmentPanel {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxUploadSize
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &AttachmentPanel{
		res:      res,
		backend:  backend,
		store:    store,
		form:     form,
		maxSize:  opts.MaxSize,
		clock:    opts.Clock,
		recorder: opts.Recorder,
		items:    []models.Attachment{},
	}
}

// Bind points the panel at a parent record and clears the list.
func (p *AttachmentPanel) Bind(parentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.parentID = parentID
	p.items = []models.Attachment{}
	p.errMsg = ""
	p.loading = false
}

// Load fetches the list of the bound parent. A response for a parent that
// is no longer bound is dropped.
func (p *AttachmentPanel) Load(ctx context.Context) error {
	if !p.res.HasAttachments() {
		return apperrors.ErrNoAttachments
	}
	p.mu.Lock()
	if p.parentID == "" {
		p.mu.Unlock()
		return nil
	}
	p.seq++
	seq := p.seq
	parent := p.parentID
	p.loading = true
	p.mu.Unlock()

	items, err := p.backend.ListAttachments(ctx, p.res.AttachmentsPath(parent))

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		return err
	}
	p.loading = false
	if err != nil {
		p.errMsg = apperrors.UserMessage(err)
		return err
	}
	p.errMsg = ""
	p.items = items
	return nil
}

// Upload stores the file under the parent's prefix and registers its
// metadata. The size check runs before any network call; a storage failure
// skips registration; a registration failure leaves the object orphaned.
func (p *AttachmentPanel) Upload(ctx context.Context, file FileUpload) (models.Attachment, error) {
	if !p.res.HasAttachments() {
		return models.Attachment{}, apperrors.ErrNoAttachments
	}
	if p.store == nil {
		return models.Attachment{}, apperrors.ErrStorage(errStorageNotConfigured)
	}

	body, err := p.checkSize(file)
	if err != nil {
		p.fail(err)
		p.recorder.Upload(p.res.Name, uploadRejected)
		return models.Attachment{}, err
	}

	p.mu.Lock()
	if p.uploading {
		p.mu.Unlock()
		return models.Attachment{}, apperrors.ErrUploadInFlight
	}
	p.uploading = true
	p.errMsg = ""
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.uploading = false
		p.mu.Unlock()
	}()

	parentID, err := p.form.EnsureDraft(ctx)
	if err != nil {
		p.fail(err)
		return models.Attachment{}, err
	}
	p.adopt(parentID)

	key := StoragePath(p.res.AttachmentCategory, parentID, file.Name, p.clock.Now())
	if err := p.store.Save(ctx, key, body, file.MimeType); err != nil {
		logger.StorageLog("save", key, err)
		appErr := apperrors.ErrStorage(err)
		p.fail(appErr)
		p.recorder.Upload(p.res.Name, uploadStorage)
		return models.Attachment{}, appErr
	}
	logger.StorageLog("save", key, nil)

	att, err := p.backend.CreateAttachment(ctx, p.res.AttachmentsPath(parentID), models.AttachmentInput{
		StoragePath:   key,
		NombreArchivo: file.Name,
		MimeType:      file.MimeType,
		TipoAdjunto:   file.Kind,
	})
	if err != nil {
		logger.Warn("attachment metadata not registered, stored object orphaned",
			"resource", p.res.Name, "parent_id", parentID, "storage_path", key, "error", err)
		p.fail(err)
		p.recorder.Upload(p.res.Name, uploadOrphan)
		return models.Attachment{}, err
	}

	p.mu.Lock()
	if p.parentID == parentID {
		p.items = slices.Insert(p.items, 0, att)
	}
	p.mu.Unlock()
	p.recorder.Upload(p.res.Name, uploadOK)
	return att, nil
}

func (p *AttachmentPanel) checkSize(file FileUpload) (io.Reader, error) {
	if file.Size > p.maxSize {
		return nil, apperrors.ErrFileTooLarge
	}
	if file.Size >= 0 {
		return file.Body, nil
	}
	buf, err := io.ReadAll(io.LimitReader(file.Body, p.maxSize+1))
	if err != nil {
		return nil, apperrors.NewBadRequestError("No se pudo leer el archivo")
	}
	if int64(len(buf)) > p.maxSize {
		return nil, apperrors.ErrFileTooLarge
	}
	return bytes.NewReader(buf), nil
}

// adopt binds the panel to a draft created during upload without dropping
// the list of an already bound parent.
func (p *AttachmentPanel) adopt(parentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.parentID != parentID {
		p.seq++
		p.parentID = parentID
		p.items = []models.Attachment{}
	}
}

// Delete removes the metadata row. The stored object is left in place.
func (p *AttachmentPanel) Delete(ctx context.Context, attachmentID string) error {
	if !p.res.HasAttachments() {
		return apperrors.ErrNoAttachments
	}
	if err := p.backend.Delete(ctx, p.res.AttachmentPath(attachmentID)); err != nil {
		p.fail(err)
		return err
	}
	p.mu.Lock()
	p.items = slices.DeleteFunc(p.items, func(a models.Attachment) bool {
		return a.ID.String() == attachmentID
	})
	p.errMsg = ""
	p.mu.Unlock()
	return nil
}

// Find returns a listed attachment by id.
func (p *AttachmentPanel) Find(attachmentID string) (models.Attachment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.items {
		if a.ID.String() == attachmentID {
			return a, true
		}
	}
	return models.Attachment{}, false
}

func (p *AttachmentPanel) fail(err error) {
	p.mu.Lock()
	p.errMsg = apperrors.UserMessage(err)
	p.mu.Unlock()
}

func (p *AttachmentPanel) Snapshot() AttachmentState {
	p.mu.Lock()
	defer p.mu.Unlock()
	views := make([]AttachmentView, 0, len(p.items))
	for _, a := range p.items {
		views = append(views, AttachmentView{Attachment: a, URL: storage.PublicURLOr(p.store, a.StoragePath)})
	}
	return AttachmentState{
		Resource:  p.res.Name,
		ParentID:  p.parentID,
		Items:     views,
		Loading:   p.loading,
		Uploading: p.uploading,
		Error:     p.errMsg,
	}
}
