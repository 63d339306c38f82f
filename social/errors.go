package social

import "errors"

var (
	ErrNotAuthor    = errors.New("viewer is not the author")
	ErrPostNotFound = errors.New("post not in view")
	ErrNotLoaded    = errors.New("view not loaded")
)
