package console

import (
	"context"
	"fmt"

	"flota_console/internal/models"
	"flota_console/pkg/apperrors"
)

// ResourceConsole groups the controllers of one resource screen.
type ResourceConsole struct {
	Resource    *models.Resource
	List        *ListView
	Form        *FormModal
	Attachments *AttachmentPanel
	Confirm     *Confirmation

	ws *Workspace
}

// ConsoleState is the full screen state of a resource.
type ConsoleState struct {
	Resource    string           `json:"resource"`
	Title       string           `json:"title"`
	CanWrite    bool             `json:"can_write"`
	List        ListState        `json:"list"`
	Form        FormState        `json:"form"`
	Attachments *AttachmentState `json:"attachments,omitempty"`
	Confirm     ConfirmState     `json:"confirm"`
}

func (rc *ResourceConsole) Snapshot() ConsoleState {
	st := ConsoleState{
		Resource: rc.Resource.Name,
		Title:    rc.Resource.Title,
		CanWrite: rc.canWrite(),
		List:     rc.List.Snapshot(),
		Form:     rc.Form.Snapshot(),
		Confirm:  rc.Confirm.Snapshot(),
	}
	if rc.Resource.HasAttachments() {
		att := rc.Attachments.Snapshot()
		st.Attachments = &att
	}
	return st
}

func (rc *ResourceConsole) canWrite() bool {
	return rc.Resource.Permits(rc.ws.user, true)
}

func (rc *ResourceConsole) requireWrite() error {
	if !rc.canWrite() {
		return apperrors.ErrInsufficientPermissions
	}
	return nil
}

// OpenForm opens the form for a new record (id == "") or for editing id.
// Reference lists and attachments load in the background.
func (rc *ResourceConsole) OpenForm(ctx context.Context, id string) error {
	if err := rc.requireWrite(); err != nil {
		return err
	}

	if id == "" {
		if err := rc.Form.OpenNew(); err != nil {
			return err
		}
		rc.Attachments.Bind("")
	} else {
		e, ok := rc.List.Find(id)
		if !ok {
			var err error
			e, err = rc.ws.backend.Get(ctx, rc.Resource.ItemPath(id))
			if err != nil {
				return err
			}
		}
		if err := rc.Form.OpenEdit(e); err != nil {
			return err
		}
		rc.Attachments.Bind(id)
	}

	if len(rc.Resource.References) > 0 {
		rc.ws.goBackground(func(ctx context.Context) {
			_ = rc.Form.LoadReferences(ctx)
			rc.publishForm()
		})
	}
	if id != "" && rc.Resource.HasAttachments() {
		rc.ws.goBackground(func(ctx context.Context) {
			_ = rc.Attachments.Load(ctx)
			rc.publishAttachments()
		})
	}
	rc.publishForm()
	return nil
}

// UpdateForm applies edited values.
func (rc *ResourceConsole) UpdateForm(values map[string]any) error {
	err := rc.Form.SetValues(values)
	rc.publishForm()
	return err
}

// SubmitForm saves the buffer. Edits close the form; creates on resources
// with attachments stay open on the new id. The list is refreshed on success.
func (rc *ResourceConsole) SubmitForm(ctx context.Context) (models.Entity, error) {
	if err := rc.requireWrite(); err != nil {
		return nil, err
	}
	isNew := rc.Form.TargetID() == ""

	saved, err := rc.Form.Submit(ctx)
	if err != nil {
		rc.publishForm()
		return nil, err
	}

	if isNew && rc.Resource.KeepOpenAfterCreate() {
		rc.Form.AdoptSaved(saved)
		rc.Attachments.adopt(saved.ID())
	} else {
		_ = rc.Form.Close()
		rc.Attachments.Bind("")
	}
	rc.List.Refresh()
	rc.publishForm()
	rc.publishAttachments()
	return saved, nil
}

// EnsureDraft creates the draft record attachments need, if missing.
func (rc *ResourceConsole) EnsureDraft(ctx context.Context) (string, error) {
	if err := rc.requireWrite(); err != nil {
		return "", err
	}
	if !rc.Resource.HasAttachments() {
		return "", apperrors.ErrNoAttachments
	}
	hadID := rc.Form.TargetID() != ""
	id, err := rc.Form.EnsureDraft(ctx)
	if err != nil {
		rc.publishForm()
		return "", err
	}
	rc.Attachments.adopt(id)
	if !hadID {
		rc.List.Refresh()
	}
	rc.publishForm()
	return id, nil
}

// CloseForm discards the buffer.
func (rc *ResourceConsole) CloseForm() error {
	if err := rc.Form.Close(); err != nil {
		return err
	}
	rc.Attachments.Bind("")
	rc.publishForm()
	return nil
}

// Upload attaches a file to the open record, creating a draft when needed.
func (rc *ResourceConsole) Upload(ctx context.Context, file FileUpload) (models.Attachment, error) {
	if err := rc.requireWrite(); err != nil {
		return models.Attachment{}, err
	}
	if !rc.Form.IsOpen() {
		return models.Attachment{}, apperrors.ErrFormNotOpen
	}
	hadID := rc.Form.TargetID() != ""
	att, err := rc.Attachments.Upload(ctx, file)
	if !hadID && rc.Form.TargetID() != "" {
		rc.List.Refresh()
		rc.publishForm()
	}
	rc.publishAttachments()
	return att, err
}

func (rc *ResourceConsole) DeleteAttachment(ctx context.Context, attachmentID string) error {
	if err := rc.requireWrite(); err != nil {
		return err
	}
	err := rc.Attachments.Delete(ctx, attachmentID)
	rc.publishAttachments()
	return err
}

// RequestDelete puts a displayed row behind the confirmation gate.
func (rc *ResourceConsole) RequestDelete(id string) error {
	if err := rc.requireWrite(); err != nil {
		return err
	}
	e, ok := rc.List.Find(id)
	if !ok {
		return apperrors.New(apperrors.CodeNotFound, "console", "Registro no encontrado en la lista", 404)
	}
	if !rc.Resource.CanDelete(e) {
		return apperrors.ErrRecordLocked
	}
	err := rc.Confirm.Request(id, rowLabel(rc.Resource, e))
	rc.publishConfirm()
	return err
}

// ConfirmDelete runs the pending delete and refreshes the list on success.
func (rc *ResourceConsole) ConfirmDelete(ctx context.Context) error {
	_, err := rc.Confirm.Confirm(ctx)
	rc.publishConfirm()
	return err
}

func (rc *ResourceConsole) CancelDelete() error {
	err := rc.Confirm.Cancel()
	rc.publishConfirm()
	return err
}

func (rc *ResourceConsole) deleteRecord(ctx context.Context, id string) error {
	if err := rc.ws.backend.Delete(ctx, rc.Resource.ItemPath(id)); err != nil {
		return err
	}
	rc.List.Refresh()
	return nil
}

func rowLabel(res *models.Resource, e models.Entity) string {
	for _, key := range []string{"placa", "nombre", "descripcion", "origen"} {
		if v := e.String(key); v != "" {
			return fmt.Sprintf("%s #%s (%s)", res.Title, e.ID(), v)
		}
	}
	return fmt.Sprintf("%s #%s", res.Title, e.ID())
}

func (rc *ResourceConsole) publishForm() {
	rc.ws.publish(Event{Kind: EventForm, Resource: rc.Resource.Name, State: rc.Form.Snapshot()})
}

func (rc *ResourceConsole) publishAttachments() {
	if !rc.Resource.HasAttachments() {
		return
	}
	rc.ws.publish(Event{Kind: EventAttachments, Resource: rc.Resource.Name, State: rc.Attachments.Snapshot()})
}

func (rc *ResourceConsole) publishConfirm() {
	rc.ws.publish(Event{Kind: EventConfirm, Resource: rc.Resource.Name, State: rc.Confirm.Snapshot()})
}
