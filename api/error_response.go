package api

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/Drolfothesgnir/pagec/diag"
)

type ErrorField struct {
	FieldName    string `json:"field_name"`
	ErrorMessage string `json:"error_message"`
}

type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []ErrorField `json:"fields,omitempty"`

	// Errors are the translation errors of a page which failed to compile.
	Errors []diag.SerializableError `json:"errors,omitempty"`
}

func NewErrorResponse(err error, fields ...ErrorField) ErrorResponse {
	return ErrorResponse{Error: err.Error(), Fields: fields}
}

func newTranslationErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: ErrTranslation.Error(), Errors: diag.SerializeAll(err)}
}

// ExtractErrorFields converts the validation errors of a request binding into per-field messages.
func ExtractErrorFields(err error) []ErrorField {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make([]ErrorField, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, ErrorField{
			FieldName:    fe.Field(),
			ErrorMessage: getBindingErrorMessage(fe.Tag()),
		})
	}
	return fields
}

func getBindingErrorMessage(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "max":
		return "value is too long"
	case "len":
		return "invalid length"
	case "hexadecimal":
		return "must be a hexadecimal string"
	case "oneof":
		return "must be one of the allowed values"
	case "startswith":
		return "must start with the required prefix"
	}
	return "invalid input"
}

func extractErrorFromBuffer(buf *bytes.Buffer) (*ErrorResponse, error) {
	var resp ErrorResponse
	if err := json.NewDecoder(buf).Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
