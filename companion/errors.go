package companion

import "errors"

var (
	ErrNilWorld         = errors.New("companion: nil world")
	ErrInvalidConfig    = errors.New("companion: invalid config")
	ErrUnknownCompanion = errors.New("companion: unknown companion")
	ErrUnknownCommand   = errors.New("companion: unknown command")
	ErrQueueFull        = errors.New("companion: command queue full")
)
