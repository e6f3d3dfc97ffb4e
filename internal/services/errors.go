package services

import "errors"

// Sentinel errors returned by the services so handlers can map them to
// HTTP statuses. Ownership mismatches are reported as ErrNotFound on
// purpose: callers must not be able to tell a foreign resource apart
// from a missing one.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCategory    = errors.New("invalid category_id")
	ErrInvalidCredentials = errors.New("incorrect email or password")
)
