package token

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnsupportedVersion = errors.New("unsupported token version")
)

// InvalidTokenError reports a missing or undecodable payload field.
type InvalidTokenError struct {
	Field string
	Err   error
}

func (e *InvalidTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid token: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid token: missing %s", e.Field)
}

func (e *InvalidTokenError) Unwrap() error { return e.Err }

func (e *InvalidTokenError) Is(target error) bool { return target == ErrInvalidToken }

// UnsupportedVersionError reports a payload version this package cannot read.
type UnsupportedVersionError struct {
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported token version %q", e.Version)
}

func (e *UnsupportedVersionError) Is(target error) bool { return target == ErrUnsupportedVersion }
