package executor

import "errors"

var (
	ErrRunNotFound = errors.New("run not found")
	ErrClosed      = errors.New("executor closed")
)
