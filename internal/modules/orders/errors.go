package orders

import "errors"

var (
	ErrCodeExhausted = errors.New("could not allocate a unique payment code")
)
