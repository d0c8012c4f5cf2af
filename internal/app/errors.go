package app

import (
	"errors"

	"github.com/hylla/shopfloor/internal/domain"
)

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound     = domain.ErrNotFound
	ErrInvalidKey   = errors.New("invalid board key")
	ErrUnknownStage = errors.New("unknown stage template")
)
