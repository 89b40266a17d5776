package functions

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/greengliwice/trees-backend/internal/api"
	"github.com/greengliwice/trees-backend/internal/apierr"
	"github.com/greengliwice/trees-backend/internal/httpx"
	"github.com/greengliwice/trees-backend/internal/models"
)

// ListDicts handles GET /dicts/{type}. The table is created and seeded on first use.
func (a *App) ListDicts(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "dicts"
	t, ok := models.ParseDictType(req.PathParameters["type"])
	if !ok {
		return a.fail(ctx, fn, apierr.New(apierr.CodeInvalidFields, "invalid type"))
	}

	seeded, err := a.Dicts.EnsureSeeded(ctx, a.Seed)
	if err != nil {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "ensure dicts", err))
	}
	if seeded {
		a.Log.InfoContext(ctx, "dicts seeded", "items", len(a.Seed))
	}

	items, err := a.Dicts.ListByType(ctx, t)
	if err != nil {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "list dicts", err))
	}
	out := make([]api.DictEntry, 0, len(items))
	for _, it := range items {
		out = append(out, api.DictEntry{ID: it.ID, Name: it.Name})
	}
	return httpx.JSON(http.StatusOK, out)
}
