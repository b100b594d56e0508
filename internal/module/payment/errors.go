package payment

import "errors"

// Module errors.
var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownUser      = errors.New("payment event references unknown user")
)
