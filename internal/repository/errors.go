package repository

import "errors"

var ErrMismatchNotFound = errors.New("mismatch record not found")
