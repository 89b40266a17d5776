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

// CreateMyTree handles POST /my/trees.
func (a *App) CreateMyTree(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "create-my-tree"
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	f, err := readForm(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	tree, err := a.Submit.Submit(ctx, id.Sub, f)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	return httpx.JSON(http.StatusCreated, api.Created{ID: tree.ID})
}

// GetMyTree handles GET /my/trees/{id}.
func (a *App) GetMyTree(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "get-my-tree"
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	tree, err := a.Trees.GetForUser(ctx, id.Sub, req.PathParameters["id"])
	if err != nil {
		return a.fail(ctx, fn, notFound(err, "tree"))
	}
	if tree, err = a.presign(ctx, tree); err != nil {
		return a.fail(ctx, fn, err)
	}
	return httpx.JSON(http.StatusOK, api.TreeDetail{Tree: tree, ExpiresIn: a.expiresIn()})
}

// GetMyTrees handles GET /my/trees.
func (a *App) GetMyTrees(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "get-my-trees"
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	trees, err := a.Trees.ListByUser(ctx, id.Sub)
	if err != nil {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "list trees", err))
	}

	out := api.TreeSummaries{Trees: make([]api.TreeSummary, 0, len(trees))}
	for _, t := range trees {
		if t, err = a.presign(ctx, t); err != nil {
			return a.fail(ctx, fn, err)
		}
		out.Trees = append(out.Trees, api.TreeSummary{ID: t.ID, TreeThumbnailURL: t.TreeThumbnailURL})
	}
	if len(out.Trees) > 0 {
		out.ExpiresIn = a.expiresIn()
	}
	return httpx.JSON(http.StatusOK, out)
}

// GetTree handles GET /trees/{id}.
func (a *App) GetTree(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "get-tree"
	tree, err := a.Trees.Get(ctx, req.PathParameters["id"])
	if err != nil {
		return a.fail(ctx, fn, notFound(err, "tree"))
	}
	if tree, err = a.presign(ctx, tree); err != nil {
		return a.fail(ctx, fn, err)
	}
	return httpx.JSON(http.StatusOK, api.TreeDetail{Tree: tree, ExpiresIn: a.expiresIn()})
}

// GetAllTrees handles GET /trees. Admins only.
func (a *App) GetAllTrees(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "get-all-trees"
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	if !a.Auth.IsAdmin(id) {
		return a.fail(ctx, fn, apierr.New(apierr.CodeForbidden, "admin only"))
	}
	trees, err := a.Trees.ListAll(ctx)
	if err != nil {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "scan trees", err))
	}
	for i := range trees {
		if trees[i], err = a.presign(ctx, trees[i]); err != nil {
			return a.fail(ctx, fn, err)
		}
	}
	out := api.TreeDetails{Trees: trees}
	if out.Trees == nil {
		out.Trees = []models.Tree{}
	}
	if len(trees) > 0 {
		out.ExpiresIn = a.expiresIn()
	}
	return httpx.JSON(http.StatusOK, out)
}
