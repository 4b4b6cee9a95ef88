package storage

import "github.com/pkg/errors"

// ErrNotFound is returned by backends and KV when no object or key exists
// under the requested name.
var ErrNotFound = errors.New("object not found")
