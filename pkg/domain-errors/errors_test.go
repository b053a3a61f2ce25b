package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "store unreachable")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeUnavailable, CodeOf(err))
	assert.Contains(t, err.Error(), "store unreachable")
}

func TestCodeOfTraversesWrapping(t *testing.T) {
	inner := New(CodeNotFound, "employee not found")
	outer := fmt.Errorf("detail lookup: %w", inner)

	assert.Equal(t, CodeNotFound, CodeOf(outer))
	assert.True(t, HasCode(outer, CodeNotFound))
	assert.False(t, HasCode(outer, CodeConflict))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:   http.StatusBadRequest,
		CodeInvalidInput: http.StatusBadRequest,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeUnavailable:  http.StatusServiceUnavailable,
		CodeInternal:     http.StatusInternalServerError,
		Code("mystery"):  http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), code)
	}
}
