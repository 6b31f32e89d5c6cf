package attendance

import (
	"errors"

	"presentsmart/internal/apperr"
)

var (
	ErrCodeRequired = apperr.New(apperr.Validation, "code is required")
	ErrCodeNotFound = apperr.New(apperr.NotFound, "invalid attendance code")
	ErrCodeExpired  = apperr.New(apperr.Validation, "code has expired")
	ErrDuplicate    = apperr.New(apperr.Conflict, "you have already marked attendance today")
)

// errCodeTaken is returned by stores when a generated code collides with a
// stored one. The registry retries with a fresh value.
var errCodeTaken = errors.New("attendance code already in use")
