package storage

import "errors"

// ErrDuplicateKey is returned when an insert collides with an existing id.
var ErrDuplicateKey = errors.New("duplicate key")

var errSessionDone = errors.New("session already committed or rolled back")
