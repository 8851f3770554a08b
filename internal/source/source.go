package source

import (
	"errors"
	"fmt"
)

// AuthError indicates that the mailbox server rejected the login.
type AuthError struct {
	Account string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Account, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ConfigError indicates unusable provisioning data, such as a malformed
// port or a missing server. Retrying cannot fix it.
type ConfigError struct {
	Account string
	Field   string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %s: %v", e.Account, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err (or any error in its chain) is a ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// Outcome is the result of a remote mutation. It separates "nothing to
// do" from a failure that needs a retry.
type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeSuccess
	OutcomeNoop
)

// OK reports whether the outcome leaves nothing to retry.
func (o Outcome) OK() bool {
	return o == OutcomeSuccess || o == OutcomeNoop
}

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoop:
		return "noop"
	default:
		return "failure"
	}
}
