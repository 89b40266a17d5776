package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(CodeMissingBody, "no body"), http.StatusBadRequest},
		{New(CodeMissingBadState, "bad-state required"), http.StatusBadRequest},
		{fmt.Errorf("submit: %w", New(CodeUnknownSpecies, "unknown species")), http.StatusBadRequest},
		{New(CodeNotFound, "not found"), http.StatusNotFound},
		{New(CodeUnauthorized, "missing user"), http.StatusUnauthorized},
		{New(CodeForbidden, "admin only"), http.StatusForbidden},
		{New(CodeConflict, "exists"), http.StatusConflict},
		{Wrap(CodeGeocodeFailure, "reverse geocode", errors.New("timeout")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), tt.err.Error())
	}
}

func TestMessage_HidesInfrastructure(t *testing.T) {
	assert.Equal(t, "invalid perimeter", Message(New(CodeInvalidFields, "invalid perimeter")))
	assert.Equal(t, "internal error", Message(Wrap(CodeStoreFailure, "put tree", errors.New("throttled"))))
	assert.Equal(t, "internal error", Message(errors.New("boom")))
}

func TestWrap_Unwraps(t *testing.T) {
	cause := errors.New("dial tcp")
	err := Wrap(CodeStoreFailure, "query dicts", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeStoreFailure, CodeOf(err))
	assert.Equal(t, "STORE_FAILURE: query dicts: dial tcp", err.Error())
	assert.Equal(t, Code(""), CodeOf(cause))
}
