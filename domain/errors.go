package domain

import "errors"

var ErrUnexpectedDatabase = errors.New("unexpected-database-error")
