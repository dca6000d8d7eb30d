package models

import "errors"

// Repository and ledger errors
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key violation")
	ErrAlreadySettled = errors.New("decision already settled")
)
