// Package apperr holds the sentinel errors shared between the service and transport layers.
package apperr

import "errors"

var (
	ErrPostNotFound           = errors.New("post not found")
	ErrInvalidInput           = errors.New("title, content, and author id are required")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrNotAuthor              = errors.New("caller is not the author of this post")
	ErrInvalidToken           = errors.New("invalid identity token")

	ErrMissingDatabaseURL = errors.New("database url is not configured")
	ErrInvalidDatabaseURL = errors.New("database url is malformed")
)
