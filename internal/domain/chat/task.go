package chat

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle state of one in-flight turn.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Task tracks one in-flight chat turn. It is transient: it exists only for
// the duration of a single streaming call and is never persisted.
//
// Transitions: pending → processing once the user message is durably
// appended; processing → complete after the assistant message lands, or
// → error on any failure along the way.
type Task struct {
	ID             string
	ConversationID string
	Status         Status
	Result         string
	Err            error
	CreatedAt      time.Time
	TimeoutAt      time.Time
	Progress       int

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newTask(id, conversationID string, timeout time.Duration) *Task {
	now := time.Now().UTC()
	if id == "" {
		id = fmt.Sprintf("%s-%d", conversationID, now.UnixNano())
	}
	return &Task{
		ID:             id,
		ConversationID: conversationID,
		Status:         StatusPending,
		CreatedAt:      now,
		TimeoutAt:      now.Add(timeout),
	}
}

// bindCancel attaches the turn's cancellation handle.
func (t *Task) bindCancel(cancel context.CancelFunc) {
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
}

// Cancel aborts the turn cooperatively: the in-flight stream stops, no
// assistant message is appended, and the turn ends in the error state. The
// already-persisted user message is not rolled back. Reports false when the
// turn has not opened its remote call yet.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel == nil {
		return false
	}
	t.cancel()
	return true
}

func (t *Task) complete(result string) {
	t.Status = StatusComplete
	t.Result = result
}

func (t *Task) fail(err error) {
	t.Status = StatusError
	t.Err = err
}
