package domain

import "errors"

// Core failure kinds surfaced by stage, checklist, kanban, and run commands.
var (
	ErrInvalidState = errors.New("invalid state")
	ErrNotFound     = errors.New("not found")
	ErrCrossRunMove = errors.New("cannot move a stage into another run's lane")
	ErrValidation   = errors.New("validation failed")
	ErrInUse        = errors.New("referenced by other records")
)

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidText     = errors.New("invalid text")
	ErrInvalidKind     = errors.New("invalid stage kind")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidRole     = errors.New("invalid role")
)
