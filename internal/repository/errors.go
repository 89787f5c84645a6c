// Package repository provides the pgx data access layer.
package repository

import "errors"

// Common errors for repository operations.
var (
	ErrNotFound             = errors.New("record not found")
	ErrInsufficientTrophies = errors.New("insufficient trophies")
	ErrAlreadyExists        = errors.New("record already exists")
)
