package conversation

import "fmt"

// NotFoundError is returned when a conversation ID exists in neither the
// cache nor the store. It is surfaced to callers verbatim and never retried.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("conversation %q not found", e.ID)
}

// StorageError wraps any underlying filesystem failure. Callers never see
// raw I/O errors from the store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("conversation storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CreateError is returned when ID allocation or the initial write of a new
// conversation fails.
type CreateError struct {
	Err error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create conversation: %v", e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }
