package customer

import "errors"

// ErrDuplicateEmail is returned by Save when another customer already holds the email.
var ErrDuplicateEmail = errors.New("customer email already registered")
