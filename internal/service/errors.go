package service

import (
	"errors"
	"fmt"
)

var (
	// ErrQuotaExceeded is returned when a free user already has the maximum of active tasks.
	ErrQuotaExceeded = errors.New("active task quota exceeded")
	// ErrRemoteStore matches every *RemoteStoreError.
	ErrRemoteStore = errors.New("remote store failure")
	// ErrInvalidAward is returned for negative xp awards.
	ErrInvalidAward = errors.New("invalid xp award")
)

// RemoteStoreError wraps a failure of the remote backend during a store operation.
type RemoteStoreError struct {
	Op  string
	Err error
}

func (e *RemoteStoreError) Error() string {
	return fmt.Sprintf("remote store: %s: %v", e.Op, e.Err)
}

func (e *RemoteStoreError) Unwrap() error {
	return e.Err
}

func (e *RemoteStoreError) Is(target error) bool {
	return target == ErrRemoteStore
}
