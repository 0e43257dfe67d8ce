package website

import "errors"

var (
	// ErrInvalidURL indicates the URL failed validation at creation time.
	ErrInvalidURL = errors.New("invalid website URL")
	// ErrStatusExists indicates a status option with that value already exists.
	ErrStatusExists = errors.New("project status already exists")
	// ErrEmptyLabel indicates a status option label was empty.
	ErrEmptyLabel = errors.New("status label must not be empty")
)
