package vmap

import "errors"

// Sentinel errors for vmap file loading.
var (
	ErrWrongMagic   = errors.New("wrong file magic")
	ErrTruncated    = errors.New("truncated file")
	ErrBadChunk     = errors.New("unexpected chunk id")
	ErrNameTooLong  = errors.New("model name too long")
	ErrInvalidIndex = errors.New("triangle index out of range")
	ErrZeroBound    = errors.New("model has zero bounds")
	ErrLoadFailed   = errors.New("map tile load failed")
)
