package password

import "errors"

// Public, stable errors for callers.
var (
	ErrInvalidHash    = errors.New("invalid password hash")
	ErrInputTooLong   = errors.New("password input too long")
	ErrEmptyPassword  = errors.New("empty password")
	ErrInvalidSetting = errors.New("invalid password setting")
)
