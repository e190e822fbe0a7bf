package repository

import "errors"

// ErrNoRows is returned by single-row updates that matched nothing.
var ErrNoRows = errors.New("no_rows")
