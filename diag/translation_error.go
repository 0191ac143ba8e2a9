package diag

import (
	"errors"
	"fmt"

	"github.com/Drolfothesgnir/pagec/reader"
)

// TranslationError is a problem found in a page, reported at the source position where it was detected.
type TranslationError struct {
	// Issue is the kind of the problem.
	Issue Issue

	// Mark is the position of the offending construct.
	Mark reader.Mark

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

func (e *TranslationError) Error() string {
	if e.Mark.IsZero() {
		return e.Message
	}
	return e.Mark.String() + ": " + e.Message
}

// Key returns the message key of the error's issue.
func (e *TranslationError) Key() string {
	return e.Issue.Key()
}

// Errorf creates a *TranslationError with a formatted message.
// If one of the arguments is an error, it becomes the wrapped error.
func Errorf(issue Issue, m reader.Mark, format string, args ...any) *TranslationError {
	err := fmt.Errorf(format, args...)
	return &TranslationError{
		Issue:   issue,
		Mark:    m,
		Message: err.Error(),
		Err:     errors.Unwrap(err),
	}
}

// Internal reports a broken translator invariant. It is raised with panic by the code paths
// which switch over node kinds and is recovered into an error by the compiler.
func Internal(format string, args ...any) *TranslationError {
	return &TranslationError{
		Issue:   IssueInternal,
		Message: "internal error: " + fmt.Sprintf(format, args...),
	}
}

// AsTranslationError returns the first *TranslationError found in err's tree.
func AsTranslationError(err error) (*TranslationError, bool) {
	var te *TranslationError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
