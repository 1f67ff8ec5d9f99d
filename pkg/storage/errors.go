package storage

import "errors"

var (
	ErrNilRecord  = errors.New("storage: record must not be nil")
	ErrEmptyID    = errors.New("storage: id must not be empty")
	ErrNoSuchUser = errors.New("storage: user profile does not exist")
)
