package payments

import "errors"

var (
	ErrAlreadyMatched  = errors.New("payment log entry already matched")
	ErrOrderNotPending = errors.New("order is not pending payment")
)
