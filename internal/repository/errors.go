// Package repository persists the gateway's own records.  The restaurant
// data lives upstream; only the settlement journal is stored here.
package repository

import "errors"

// ErrNotFound is returned when the addressed row does not exist.  Handlers
// translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a row exists but is not in a state that
// allows the change, such as finishing an attempt twice.
var ErrConflict = errors.New("conflict")
