package collision

import "errors"

var (
	ErrNoModel         = errors.New("game object has no collision model")
	ErrDuplicateObject = errors.New("game object already placed")
	ErrUnknownObject   = errors.New("game object not placed")
)
