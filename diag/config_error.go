package diag

import "fmt"

// ConfigError describes an error which occurs while setting up the translator, like a malformed
// tag library descriptor or an invalid option, as opposed to an error in a page.
type ConfigError struct {
	Issue Issue // Issue is the kind of the problem.
	Err   error // Err contains the original error.
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Issue, e.Err)
}

// NewConfigError is a factory function for creating a *ConfigError.
func NewConfigError(issue Issue, err error) *ConfigError {
	return &ConfigError{
		Issue: issue,
		Err:   err,
	}
}
