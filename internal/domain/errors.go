package domain

import "errors"

var (
	ErrInvalidCart   = errors.New("invalid cart")
	ErrPaymentFailed = errors.New("payment failed")
	ErrInternal      = errors.New("internal error")
	ErrNotFound      = errors.New("not found")
)
