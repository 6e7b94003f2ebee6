// Package repository defines the durable stores behind the reservation
// manager and the account collaborator, together with the error values
// they share.  Higher layers use errors.Is against these sentinels to
// tell failure scenarios apart; messages are never compared.
package repository

import "errors"

// ErrPersistence is returned when durable storage cannot be opened,
// written or replaced.  A caller that sees it after mutating in-memory
// state must assume the change is not durable.
var ErrPersistence = errors.New("persistence unavailable")

// ErrAccountNotFound is returned when no account has the given username.
var ErrAccountNotFound = errors.New("account not found")

// ErrAccountExists is returned when creating an account whose username is
// already taken.
var ErrAccountExists = errors.New("account already exists")
