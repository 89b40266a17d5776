package httpx

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greengliwice/trees-backend/internal/apierr"
)

func TestJSON(t *testing.T) {
	resp, err := JSON(http.StatusOK, map[string]int{"points": 3})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.JSONEq(t, `{"points":3}`, resp.Body)
}

func TestError(t *testing.T) {
	resp, _ := Error(http.StatusUnauthorized, "missing user")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"missing user"}`, resp.Body)
}

func TestFromError(t *testing.T) {
	resp, _ := FromError(apierr.New(apierr.CodeMissingBadState, "bad-state required"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"bad-state required","code":"MISSING_BAD_STATE"}`, resp.Body)

	resp, _ = FromError(apierr.Wrap(apierr.CodeGeocodeFailure, "reverse geocode", errors.New("503")))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"internal error"}`, resp.Body)
}

func TestTextAndNoContent(t *testing.T) {
	resp, _ := Text(http.StatusOK, "a1b2c3d4e5")
	assert.Equal(t, "a1b2c3d4e5", resp.Body)

	resp, _ = NoContent()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Body)
}
