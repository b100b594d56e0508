package billing

import "errors"

// Module errors.
var (
	ErrInvalidQueryCount = errors.New("query count must be at least 1")
	ErrInvalidWindow     = errors.New("window start must not be after window end")
)
