package loader

import "errors"

var (
	ErrRootNotFound       = errors.New("asset root not found")
	ErrRootNotDirectory   = errors.New("asset root is not a directory")
	ErrInvalidPackVersion = errors.New("invalid pack version")
	ErrMissingPackName    = errors.New("pack has no name")
)
