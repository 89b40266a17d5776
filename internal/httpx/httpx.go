// Package httpx provides helper functions for creating HTTP responses.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/greengliwice/trees-backend/internal/apierr"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string      `json:"error"`
	Code  apierr.Code `json:"code,omitempty"`
}

// JSON creates a JSON HTTP response with the given status code and value.
func JSON(status int, v any) (events.APIGatewayV2HTTPResponse, error) {
	b, _ := json.Marshal(v)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(b),
	}, nil
}

// Text creates a plain text HTTP response.
func Text(status int, body string) (events.APIGatewayV2HTTPResponse, error) {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       body,
	}, nil
}

// NoContent creates an empty 204 response.
func NoContent() (events.APIGatewayV2HTTPResponse, error) {
	return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNoContent}, nil
}

// Error creates a JSON HTTP error response with the given status code and message.
func Error(status int, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return JSON(status, errorBody{Error: msg})
}

// FromError maps err onto a response. Client errors carry their message and
// code; anything else becomes a generic 500.
func FromError(err error) (events.APIGatewayV2HTTPResponse, error) {
	body := errorBody{Error: apierr.Message(err)}
	if apierr.IsClient(err) {
		body.Code = apierr.CodeOf(err)
	}
	return JSON(apierr.Status(err), body)
}
