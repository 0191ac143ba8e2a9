package diag

// SerializableError is a serializable human-readable description of a translation error.
type SerializableError struct {
	// File is the source the error was found in.
	File string `json:"file,omitempty"`
	// Line is the 1-based line of the offending construct.
	Line int `json:"line,omitempty"`
	// Column is the 1-based column of the offending construct.
	Column int `json:"column,omitempty"`
	// Key is the stable message key of the issue.
	Key string `json:"key"`
	// Issue is the name of the issue.
	Issue string `json:"issue"`
	// Message is a human-readable description of the error.
	Message string `json:"message"`
	// IncludedFrom lists the files including File, innermost first.
	IncludedFrom []string `json:"included_from,omitempty"`
}

// Serialize converts a TranslationError to a SerializableError.
func (e *TranslationError) Serialize() SerializableError {
	return SerializableError{
		File:         e.Mark.File,
		Line:         e.Mark.Line,
		Column:       e.Mark.Col,
		Key:          e.Issue.Key(),
		Issue:        e.Issue.String(),
		Message:      e.Message,
		IncludedFrom: e.Mark.IncludeStack(),
	}
}

// SerializeAll converts every translation error found in err to a SerializableError.
// Errors carrying no translation error are reported as internal.
func SerializeAll(err error) []SerializableError {
	if err == nil {
		return nil
	}

	if l, ok := err.(ErrorList); ok {
		out := make([]SerializableError, 0, len(l))
		for _, te := range l {
			out = append(out, te.Serialize())
		}
		return out
	}

	if te, ok := AsTranslationError(err); ok {
		return []SerializableError{te.Serialize()}
	}

	return []SerializableError{{
		Key:     IssueInternal.Key(),
		Issue:   IssueInternal.String(),
		Message: err.Error(),
	}}
}
