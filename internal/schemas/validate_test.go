package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["id", "tools_used"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"tools_used": {"type": "array", "minItems": 1, "items": {"type": "string"}}
	}
}`

func TestValidateBytes_Valid(t *testing.T) {
	err := ValidateBytes("stage.json", []byte(testSchema), []byte(`{"id": "build", "tools_used": ["Maven"]}`))
	assert.NoError(t, err)
}

func TestValidateBytes_MissingField(t *testing.T) {
	err := ValidateBytes("stage.json", []byte(testSchema), []byte(`{"id": "build"}`))
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr), "error should be ValidationError type")
	assert.Equal(t, "stage.json", validationErr.Document)
	assert.NotEmpty(t, validationErr.Errors)
	assert.Contains(t, err.Error(), "validation of stage.json failed")
}

func TestValidateBytes_EmptyTools(t *testing.T) {
	err := ValidateBytes("stage.json", []byte(testSchema), []byte(`{"id": "build", "tools_used": []}`))
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "tools_used", validationErr.Errors[0].Field)
}

func TestValidateBytes_RootField(t *testing.T) {
	err := ValidateBytes("stage.json", []byte(testSchema), []byte(`[]`))
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidateBytes_BrokenSchema(t *testing.T) {
	err := ValidateBytes("stage.json", []byte(`{not json`), []byte(`{}`))
	require.Error(t, err)

	var loadErr *SchemaLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "failed to load schema stage.json")
}

func TestSchemaLoadError_NoCause(t *testing.T) {
	err := &SchemaLoadError{Name: "x", Message: "missing"}
	assert.Equal(t, "failed to load schema x: missing", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
