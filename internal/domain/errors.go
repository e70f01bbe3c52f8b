package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidTitle    = errors.New("invalid title")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidColor    = errors.New("invalid color")
	ErrInvalidFileName = errors.New("invalid file name")
)
