package console

import (
	"context"
	"sync"

	"flota_console/pkg/apperrors"
)

type ConfirmStatus string

const (
	ConfirmIdle    ConfirmStatus = "idle"
	ConfirmPending ConfirmStatus = "pending"
)

// ConfirmState is a point-in-time copy of a confirmation gate.
type ConfirmState struct {
	Status     ConfirmStatus `json:"status"`
	TargetID   string        `json:"target_id,omitempty"`
	Label      string        `json:"label,omitempty"`
	Submitting bool          `json:"submitting"`
	Error      string        `json:"error,omitempty"`
}

// Action is the destructive operation run on confirm.
type Action func(ctx context.Context, targetID string) error

// Confirmation gates a destructive action behind an explicit yes/no.
// While the action runs neither confirm nor cancel is accepted.
type Confirmation struct {
	mu         sync.Mutex
	action     Action
	status     ConfirmStatus
	targetID   string
	label      string
	submitting bool
	errMsg     string
}

func NewConfirmation(action Action) *Confirmation {
	return &Confirmation{action: action, status: ConfirmIdle}
}

// Request moves IDLE -> PENDING(target).
func (c *Confirmation) Request(targetID, label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != ConfirmIdle {
		return apperrors.ErrConfirmPending
	}
	c.status = ConfirmPending
	c.targetID = targetID
	c.label = label
	c.errMsg = ""
	return nil
}

// Confirm runs the action. Success returns to IDLE; failure stays PENDING
// with the message so the user can retry or cancel.
func (c *Confirmation) Confirm(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.status != ConfirmPending {
		c.mu.Unlock()
		return "", apperrors.ErrNothingPending
	}
	if c.submitting {
		c.mu.Unlock()
		return "", apperrors.ErrConfirmInFlight
	}
	c.submitting = true
	c.errMsg = ""
	target := c.targetID
	c.mu.Unlock()

	err := c.action(ctx, target)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		c.errMsg = apperrors.UserMessage(err)
		return target, err
	}
	c.status = ConfirmIdle
	c.targetID = ""
	c.label = ""
	return target, nil
}

// Cancel moves PENDING -> IDLE without running the action.
func (c *Confirmation) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting {
		return apperrors.ErrConfirmInFlight
	}
	if c.status != ConfirmPending {
		return apperrors.ErrNothingPending
	}
	c.status = ConfirmIdle
	c.targetID = ""
	c.label = ""
	c.errMsg = ""
	return nil
}

func (c *Confirmation) Snapshot() ConfirmState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConfirmState{
		Status:     c.status,
		TargetID:   c.targetID,
		Label:      c.label,
		Submitting: c.submitting,
		Error:      c.errMsg,
	}
}
