package devserver

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greengliwice/trees-backend/internal/functions"
)

func init() { gin.SetMode(gin.TestMode) }

func TestGinPath(t *testing.T) {
	assert.Equal(t, "/my/trees/:id", ginPath("/my/trees/{id}"))
	assert.Equal(t, "/dicts/:type", ginPath("/dicts/{type}"))
	assert.Equal(t, "/leaderboard", ginPath("/leaderboard"))
}

func TestRouter_TranslatesRequest(t *testing.T) {
	var got events.APIGatewayV2HTTPRequest
	echo := func(_ context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		got = req
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusCreated,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"id":"t1"}`,
		}, nil
	}
	r := Router([]functions.Route{{Name: "echo", Method: http.MethodPost, Path: "/my/trees/{id}", Handler: echo}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/my/trees/abc?x=1", strings.NewReader("payload"))
	req.Header.Set("X-User-Sub", "u1")
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"t1"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, "abc", got.PathParameters["id"])
	assert.Equal(t, "u1", got.Headers["x-user-sub"])
	assert.Equal(t, "1", got.QueryStringParameters["x"])
	assert.Equal(t, http.MethodPost, got.RequestContext.HTTP.Method)
	require.True(t, got.IsBase64Encoded)
	body, err := base64.StdEncoding.DecodeString(got.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestRouter_DecodesBinaryResponse(t *testing.T) {
	bin := func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return events.APIGatewayV2HTTPResponse{
			StatusCode:      http.StatusOK,
			Body:            base64.StdEncoding.EncodeToString([]byte{0xff, 0x00}),
			IsBase64Encoded: true,
		}, nil
	}
	r := Router([]functions.Route{{Name: "bin", Method: http.MethodGet, Path: "/bin", Handler: bin}}, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bin", nil))
	assert.Equal(t, []byte{0xff, 0x00}, rec.Body.Bytes())
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := Router(nil, nil)
	req := httptest.NewRequest(http.MethodOptions, "/my/trees", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
