package ordering

import "errors"

var (
	ErrInvalidNeighborOrder = errors.New("invalid neighbor order")
	ErrUnknownItem          = errors.New("unknown item")
)
