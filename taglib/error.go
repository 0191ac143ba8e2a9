package taglib

import "errors"

var (
	ErrLibraryNotFound     = errors.New("tag library not found")
	ErrVariableConflict    = errors.New("tag declares both static variables and computed variable info")
	ErrRuntimeVariableName = errors.New("variable name must be given by a literal attribute")
)
