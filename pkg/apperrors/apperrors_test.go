package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, CodeValidation.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, CodeUnauthenticated.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, CodeForbidden.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, CodeNotFound.HTTPStatus())
	assert.Equal(t, http.StatusConflict, CodeConflict.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, CodeInternal.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, CodeUnknown.HTTPStatus())
}

func TestFromUnwrapsThroughChain(t *testing.T) {
	base := Forbidden("no access")
	wrapped := fmt.Errorf("handler: %w", base)

	appErr, ok := From(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeForbidden, appErr.Code)
	assert.Equal(t, "no access", appErr.Message)
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("boom")))
	assert.Equal(t, CodeUnknown, CodeOf(nil))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeInternal, "query failed", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "query failed")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIs(t *testing.T) {
	assert.True(t, Is(Conflict("dup"), CodeConflict))
	assert.False(t, Is(Conflict("dup"), CodeNotFound))
	assert.False(t, Is(nil, CodeConflict))
}
