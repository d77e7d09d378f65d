package db

import "errors"

// ErrNotFound is returned by GetContext when the query matched no row.
var ErrNotFound = errors.New("not found")
