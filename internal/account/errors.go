package account

import "presentsmart/internal/apperr"

var (
	ErrMissingFields     = apperr.New(apperr.Validation, "missing required fields")
	ErrInvalidUserType   = apperr.New(apperr.Validation, "userType must be teacher or student")
	ErrMissingCredential = apperr.New(apperr.Validation, "email and password are required")
	ErrMissingInvitee    = apperr.New(apperr.Validation, "email and name are required")
	ErrInvalidInvite     = apperr.New(apperr.Validation, "invitation is invalid or expired")
	ErrUserExists        = apperr.New(apperr.Conflict, "user already exists with this email")
	ErrBadCredentials    = apperr.New(apperr.Unauthorized, "invalid email or password")
	ErrUserNotFound      = apperr.New(apperr.NotFound, "user not found")
	ErrNoTeacher         = apperr.New(apperr.NotFound, "teacher profile not found")
	ErrNoStudent         = apperr.New(apperr.NotFound, "student profile not found")
)
