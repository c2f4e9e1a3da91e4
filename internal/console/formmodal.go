package console

import (
	"context"
	"maps"
	"sync"

	"flota_console/internal/models"
	"flota_console/pkg/apperrors"

	"golang.org/x/sync/errgroup"
)

type FormStatus string

const (
	FormClosed     FormStatus = "closed"
	FormOpen       FormStatus = "open"
	FormSubmitting FormStatus = "submitting"
)

type FormMode string

const (
	ModeNew  FormMode = "new"
	ModeEdit FormMode = "edit"
)

// FormState is a point-in-time copy of a form modal.
type FormState struct {
	Resource       string                     `json:"resource"`
	Status         FormStatus                 `json:"status"`
	Mode           FormMode                   `json:"mode,omitempty"`
	TargetID       string                     `json:"target_id,omitempty"`
	Values         map[string]any             `json:"values,omitempty"`
	Missing        []string                   `json:"missing,omitempty"`
	CanSubmit      bool                       `json:"can_submit"`
	Locked         bool                       `json:"locked,omitempty"`
	Error          string                     `json:"error,omitempty"`
	References     map[string][]models.Entity `json:"references,omitempty"`
	ReferenceError string                     `json:"reference_error,omitempty"`
}

// FormModal is the single edit/create buffer of a resource.
type FormModal struct {
	mu      sync.Mutex
	draftMu sync.Mutex

	res     *models.Resource
	backend Backend
	clock   Clock

	status   FormStatus
	mode     FormMode
	targetID string
	values   map[string]any
	locked   bool
	errMsg   string

	refs   map[string][]models.Entity
	refErr string

	// opening counts Open/Close calls; results for an older opening are dropped.
	opening uint64
}

func NewFormModal(res *models.Resource, backend Backend, clock Clock) *FormModal {
	if clock == nil {
		clock = SystemClock
	}
	return &FormModal{
		res:     res,
		backend: backend,
		clock:   clock,
		status:  FormClosed,
	}
}

// OpenNew seeds the buffer from field defaults.
func (f *FormModal) OpenNew() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == FormSubmitting {
		return apperrors.ErrSubmitInFlight
	}
	now := f.clock.Now()
	values := make(map[string]any, len(f.res.Fields))
	for _, fd := range f.res.Fields {
		values[fd.Name] = fd.DefaultValue(now)
	}
	f.reset(ModeNew, "", values, false)
	return nil
}

// OpenEdit seeds the buffer from e exactly; no defaults are applied.
func (f *FormModal) OpenEdit(e models.Entity) error {
	id := e.ID()
	if id == "" {
		return apperrors.NewBadRequestError("El registro no tiene identificador")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == FormSubmitting {
		return apperrors.ErrSubmitInFlight
	}
	f.reset(ModeEdit, id, SeedFromEntity(f.res, e), f.res.IsLocked(e))
	return nil
}

// SeedFromEntity builds an edit buffer from a stored record.
func SeedFromEntity(res *models.Resource, e models.Entity) map[string]any {
	values := make(map[string]any, len(res.Fields))
	for _, fd := range res.Fields {
		values[fd.Name] = fd.FromEntity(e[fd.Name])
	}
	return values
}

func (f *FormModal) reset(mode FormMode, id string, values map[string]any, locked bool) {
	f.opening++
	f.status = FormOpen
	f.mode = mode
	f.targetID = id
	f.values = values
	f.locked = locked
	f.errMsg = ""
	f.refs = nil
	f.refErr = ""
}

// Close discards the buffer.
func (f *FormModal) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == FormSubmitting {
		return apperrors.ErrSubmitInFlight
	}
	f.opening++
	f.status = FormClosed
	f.mode = ""
	f.targetID = ""
	f.values = nil
	f.locked = false
	f.errMsg = ""
	f.refs = nil
	f.refErr = ""
	return nil
}

// Set parses and stores one field value.
func (f *FormModal) Set(name string, raw any) error {
	return f.SetValues(map[string]any{name: raw})
}

// SetValues applies several values; nothing is applied if any fails to parse.
func (f *FormModal) SetValues(raw map[string]any) error {
	parsed := make(map[string]any, len(raw))
	for name, v := range raw {
		fd, ok := f.res.Field(name)
		if !ok {
			return apperrors.ErrInvalidField(name, "campo desconocido")
		}
		pv, err := fd.Parse(v)
		if err != nil {
			return apperrors.ErrInvalidField(name, err.Error())
		}
		parsed[name] = pv
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.status {
	case FormClosed:
		return apperrors.ErrFormNotOpen
	case FormSubmitting:
		return apperrors.ErrSubmitInFlight
	}
	if f.locked {
		return apperrors.ErrRecordLocked
	}
	maps.Copy(f.values, parsed)
	return nil
}

// Missing lists the required fields that are empty.
func (f *FormModal) Missing() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.missingLocked()
}

// CanSubmit is false while closed, submitting, locked or missing fields.
func (f *FormModal) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canSubmitLocked()
}

func (f *FormModal) missingLocked() []string {
	if f.status == FormClosed {
		return nil
	}
	var missing []string
	for _, name := range f.res.RequiredFor(f.targetID == "") {
		fd, _ := f.res.Field(name)
		if fd.IsEmpty(f.values[name]) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (f *FormModal) canSubmitLocked() bool {
	return f.status == FormOpen && !f.locked && len(f.missingLocked()) == 0
}

// TargetID is the id a submit would PUT to, or "" for a create.
func (f *FormModal) TargetID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targetID
}

func (f *FormModal) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status != FormClosed
}

// Submit sends the buffer: POST without a target id, PUT with one. A gated
// submit makes no network call. On failure the form stays open with the
// buffer unchanged and the message stored.
func (f *FormModal) Submit(ctx context.Context) (models.Entity, error) {
	f.mu.Lock()
	switch f.status {
	case FormClosed:
		f.mu.Unlock()
		return nil, apperrors.ErrFormNotOpen
	case FormSubmitting:
		f.mu.Unlock()
		return nil, apperrors.ErrSubmitInFlight
	}
	if f.locked {
		f.mu.Unlock()
		return nil, apperrors.ErrRecordLocked
	}
	if missing := f.missingLocked(); len(missing) > 0 {
		f.mu.Unlock()
		return nil, apperrors.ErrMissingFields(missing)
	}
	if msg := f.res.Validate(f.values); msg != "" {
		f.errMsg = msg
		f.mu.Unlock()
		return nil, apperrors.ErrInconsistentRecord(msg)
	}

	id := f.targetID
	payload := f.payloadLocked(id == "", nil)
	opening := f.opening
	f.status = FormSubmitting
	f.errMsg = ""
	f.mu.Unlock()

	saved, err := f.send(ctx, id, payload)

	f.mu.Lock()
	defer f.mu.Unlock()
	if opening != f.opening {
		return saved, err
	}
	f.status = FormOpen
	if err != nil {
		f.errMsg = apperrors.UserMessage(err)
		return nil, err
	}
	return saved, nil
}

func (f *FormModal) send(ctx context.Context, id string, payload map[string]any) (models.Entity, error) {
	if id == "" {
		return f.backend.Create(ctx, f.res.BasePath(), payload)
	}
	return f.backend.Update(ctx, f.res.ItemPath(id), payload)
}

// payloadLocked converts the buffer for the wire. overrides replace buffer
// values. Create-only fields left empty on update are omitted.
func (f *FormModal) payloadLocked(isNew bool, overrides map[string]any) map[string]any {
	payload := make(map[string]any, len(f.res.Fields))
	for _, fd := range f.res.Fields {
		v := f.values[fd.Name]
		if ov, ok := overrides[fd.Name]; ok {
			v = ov
		}
		if !isNew && (fd.CreateOnly || fd.Kind == models.KindSecret) && fd.IsEmpty(v) {
			continue
		}
		payload[fd.Name] = fd.ToPayload(v)
	}
	return payload
}

// AdoptSaved keeps the form open on a freshly created record.
func (f *FormModal) AdoptSaved(saved models.Entity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == FormClosed {
		return
	}
	if id := saved.ID(); id != "" {
		f.targetID = id
		f.mode = ModeEdit
	}
	f.locked = f.res.IsLocked(saved)
}

// EnsureDraft returns the record id attachments hang from, creating a
// draft through the create path when the form has none yet. Required
// fields still empty get the resource's placeholders (or now for dates).
// Concurrent callers share one draft.
func (f *FormModal) EnsureDraft(ctx context.Context) (string, error) {
	f.draftMu.Lock()
	defer f.draftMu.Unlock()

	f.mu.Lock()
	if f.status == FormClosed {
		f.mu.Unlock()
		return "", apperrors.ErrFormNotOpen
	}
	if f.targetID != "" {
		id := f.targetID
		f.mu.Unlock()
		return id, nil
	}

	overrides := map[string]any{}
	var missing []string
	now := f.clock.Now()
	for _, name := range f.res.RequiredFor(true) {
		fd, _ := f.res.Field(name)
		if !fd.IsEmpty(f.values[name]) {
			continue
		}
		switch {
		case f.res.DraftPlaceholders[name] != "":
			overrides[name] = f.res.DraftPlaceholders[name]
		case fd.Kind == models.KindDate || fd.Kind == models.KindDateTime:
			overrides[name] = models.Field{Kind: fd.Kind, DefaultNow: true}.DefaultValue(now)
		default:
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		f.mu.Unlock()
		return "", apperrors.ErrMissingFields(missing)
	}
	payload := f.payloadLocked(true, overrides)
	opening := f.opening
	f.mu.Unlock()

	saved, err := f.backend.Create(ctx, f.res.BasePath(), payload)
	if err != nil {
		f.mu.Lock()
		if opening == f.opening {
			f.errMsg = apperrors.UserMessage(err)
		}
		f.mu.Unlock()
		return "", err
	}
	id := saved.ID()
	if id == "" {
		return "", apperrors.ErrUpstream(502, "No se pudo crear el borrador.")
	}

	f.mu.Lock()
	if opening == f.opening {
		f.targetID = id
		f.mode = ModeEdit
	}
	f.mu.Unlock()
	return id, nil
}

// LoadReferences fetches the resource's lookup lists concurrently. A
// failure is stored on the form and does not close it.
func (f *FormModal) LoadReferences(ctx context.Context) error {
	f.mu.Lock()
	opening := f.opening
	f.mu.Unlock()

	names := f.res.References
	if len(names) == 0 {
		return nil
	}
	results := make([][]models.Entity, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i := i
		ref, ok := models.LookupReference(name)
		if !ok {
			continue
		}
		g.Go(func() error {
			items, err := f.backend.Reference(gctx, ref)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	err := g.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	if opening != f.opening {
		return err
	}
	if err != nil {
		f.refErr = apperrors.UserMessage(err)
		return err
	}
	f.refs = make(map[string][]models.Entity, len(names))
	for i, name := range names {
		if results[i] == nil {
			results[i] = []models.Entity{}
		}
		f.refs[name] = results[i]
	}
	f.refErr = ""
	return nil
}

func (f *FormModal) Snapshot() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FormState{
		Resource:       f.res.Name,
		Status:         f.status,
		Mode:           f.mode,
		TargetID:       f.targetID,
		Values:         maps.Clone(f.values),
		Missing:        f.missingLocked(),
		CanSubmit:      f.canSubmitLocked(),
		Locked:         f.locked,
		Error:          f.errMsg,
		References:     f.refs,
		ReferenceError: f.refErr,
	}
}
