package service

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")

	ErrDuplicateInvoice  = errors.New("invoice already exists")
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrInvoiceProcessing = errors.New("invoice is under processing")
	ErrCorruptResult     = errors.New("processed invoice content is corrupt")

	ErrSessionNotFound = errors.New("session not found")
)
