package reconciler

import "errors"

var (
	ErrNotCreator    = errors.New("reconciler: not the channel creator")
	ErrAnonymous     = errors.New("reconciler: sign in required")
	ErrEmptyName     = errors.New("reconciler: challenge name is required")
	ErrEmptyMessage  = errors.New("reconciler: message is required")
	ErrInvalidAmount = errors.New("reconciler: amount must be greater than zero")
	ErrUnmounted     = errors.New("reconciler: not mounted")
)
