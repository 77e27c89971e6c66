// Package domain holds errors shared across domain entities.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a conditional update lost to a concurrent writer.
var ErrConflict = errors.New("conflict")
