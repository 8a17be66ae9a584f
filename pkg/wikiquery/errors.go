package wikiquery

import "errors"

var (
	// ErrNotFound marks a title that doesn't exist in the queried language.
	ErrNotFound = errors.New("page not found")

	// ErrPrecondition marks a pipeline step that ran before its prerequisite
	// was populated. This is an ordering bug, not a fetch failure: it aborts
	// the remaining steps for that page.
	ErrPrecondition = errors.New("step precondition not met")

	// ErrEmptyExtract marks a page whose extract came back empty, leaving
	// nothing to compute text statistics from.
	ErrEmptyExtract = errors.New("empty extract")
)
