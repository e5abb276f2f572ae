package domain

import "errors"

// ErrNotFound is returned by lookups that matched nothing, including an
// empty claim on the job queue. Precondition skips (unverified bot,
// unpublished post, short metric series) are not errors; those operations
// return nil after logging the skip.
var ErrNotFound = errors.New("not found")
