package functions

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/greengliwice/trees-backend/internal/httpx"
	"github.com/greengliwice/trees-backend/internal/userhash"
)

// GetMyHash handles GET /my/hash.
func (a *App) GetMyHash(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, "get-my-hash", err)
	}
	return httpx.Text(http.StatusOK, userhash.Of(id.Sub))
}
