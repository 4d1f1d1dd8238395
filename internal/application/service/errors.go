package service

import "errors"

// ErrNotFound is returned when a referenced expense or employee does not
// exist. Engine-level failures keep their own typed errors in the domain
// packages.
var ErrNotFound = errors.New("not found")
