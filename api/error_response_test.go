package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/Drolfothesgnir/pagec/diag"
	"github.com/Drolfothesgnir/pagec/reader"
)

// local validator, for Field() in ValidationErrors to return json-name
func newValidatorJSON() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func TestExtractErrorFields_NonValidationError(t *testing.T) {
	fields := ExtractErrorFields(errors.New("not a validation error"))
	require.Empty(t, fields)
}

func TestExtractErrorFields_TagMessages(t *testing.T) {
	v := newValidatorJSON()

	testCases := []struct {
		name    string
		value   any
		field   string
		message string
	}{
		{
			name: "required",
			value: struct {
				Source string `json:"source" validate:"required"`
			}{},
			field:   "source",
			message: "this field is required",
		},
		{
			name: "oneof",
			value: struct {
				Syntax string `json:"syntax" validate:"oneof=native xml"`
			}{Syntax: "yaml"},
			field:   "syntax",
			message: "must be one of the allowed values",
		},
		{
			name: "startswith",
			value: struct {
				Path string `json:"path" validate:"startswith=/"`
			}{Path: "index.jsp"},
			field:   "path",
			message: "must start with the required prefix",
		},
		{
			name: "hexadecimal",
			value: struct {
				Key string `json:"key" validate:"hexadecimal"`
			}{Key: "xyz"},
			field:   "key",
			message: "must be a hexadecimal string",
		},
		{
			name: "default_fallback_for_unknown_but_valid_tag",
			value: struct {
				Color string `json:"color" validate:"hexcolor"`
			}{Color: "not-hex"},
			field:   "color",
			message: "invalid input",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(tc.value)
			require.Error(t, err)

			fields := ExtractErrorFields(err)
			require.Len(t, fields, 1)
			require.Equal(t, tc.field, fields[0].FieldName)
			require.Equal(t, tc.message, fields[0].ErrorMessage)
		})
	}
}

func TestTranslationErrorResponse(t *testing.T) {
	m := reader.NewMark("/a.jsp", 3, 7, 40)
	err := diag.ErrorList{
		diag.Errorf(diag.IssueUnknownTag, m, "no tag x in tag library urn:t"),
		diag.Errorf(diag.IssueMissingAttribute, m.Advance("<t:y"), "attribute v is mandatory"),
	}

	res := newTranslationErrorResponse(err)
	require.Equal(t, ErrTranslation.Error(), res.Error)
	require.Len(t, res.Errors, 2)
	require.Equal(t, diag.IssueUnknownTag.Key(), res.Errors[0].Key)
	require.Equal(t, 3, res.Errors[0].Line)
	require.Equal(t, 7, res.Errors[0].Column)
	require.Equal(t, 11, res.Errors[1].Column)
}

func TestExtractErrorFromBuffer(t *testing.T) {
	exp := ErrorResponse{
		Error: "invalid params",
		Fields: []ErrorField{
			{FieldName: "source", ErrorMessage: "this field is required"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(exp))

	got, err := extractErrorFromBuffer(&buf)
	require.NoError(t, err)
	require.Equal(t, exp, *got)
}
