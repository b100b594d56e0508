package ledger

import "errors"

// Module errors.
var (
	ErrFactNotFound = errors.New("subscription fact not found")
	ErrStorage      = errors.New("ledger storage failure")
)
