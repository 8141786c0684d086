package repository

import "errors"

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDataCorrupt        = errors.New("data corrupt")
)
