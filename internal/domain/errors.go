package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a record with the same key already exists.
	ErrAlreadyExists = errors.New("already exists")

	// Session errors.
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenUnknown      = errors.New("token unknown")
	ErrTokenExpired      = errors.New("token expired")
	ErrSessionExpired    = errors.New("session expired")
	ErrSessionNotMutable = errors.New("session not mutable")

	// Cart errors.
	ErrLineInvalid = errors.New("cart line invalid")

	// Transfer errors.
	ErrEmptyCart          = errors.New("cart is empty")
	ErrBuyerSystemUnknown = errors.New("buyer system unknown")
	ErrEncoding           = errors.New("order encoding failed")
)
