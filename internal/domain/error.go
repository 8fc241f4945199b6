package domain

import "errors"

// Common domain errors
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyMessage    = errors.New("empty message body")
)
