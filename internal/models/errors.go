package models

import "errors"

// Custom errors
var (
	ErrNotFound      = errors.New("record not found")
	ErrStaleBet      = errors.New("bet status changed since it was read")
	ErrInvalidID     = errors.New("invalid ID format")
	ErrLegMismatch   = errors.New("track legs do not align with horse legs")
	ErrInvalidResult = errors.New("invalid runner result")
)
