package model

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("authentication required")
	ErrForbidden      = errors.New("forbidden")
	ErrUnsupported    = errors.New("not supported by this backend")
	ErrSyncInProgress = errors.New("a sync is already running")
	ErrFeedDisabled   = errors.New("no movieshows feed configured")
)
