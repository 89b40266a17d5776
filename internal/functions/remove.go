package functions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"golang.org/x/sync/errgroup"

	"github.com/greengliwice/trees-backend/internal/api"
	"github.com/greengliwice/trees-backend/internal/apierr"
	"github.com/greengliwice/trees-backend/internal/blobstore"
	"github.com/greengliwice/trees-backend/internal/httpx"
	"github.com/greengliwice/trees-backend/internal/models"
)

// RemoveMyTree handles DELETE /my/trees/{id}: the record first, then its blobs.
func (a *App) RemoveMyTree(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "remove-my-tree"
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	tree, err := a.Trees.Delete(ctx, id.Sub, req.PathParameters["id"])
	if err != nil {
		return a.fail(ctx, fn, notFound(err, "tree"))
	}
	if err := a.removeBlobs(ctx, tree); err != nil {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "remove blobs", err))
	}
	a.Log.InfoContext(ctx, "tree removed", "id", tree.ID, "user", id.Sub)
	return httpx.NoContent()
}

// RemoveAllMyTrees handles DELETE /my/trees.
func (a *App) RemoveAllMyTrees(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "remove-all-my-trees"
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	n, err := a.removeTrees(ctx, id.Sub)
	if err != nil {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "remove trees", err))
	}
	a.Log.InfoContext(ctx, "trees removed", "count", n, "user", id.Sub)
	return httpx.JSON(http.StatusOK, api.Removed{Trees: n})
}

// RemoveMyData handles DELETE /my/data: every tree and the leaderboard entry.
func (a *App) RemoveMyData(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "remove-my-data"
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	n, treesErr := a.removeTrees(ctx, id.Sub)
	boardErr := a.Board.Delete(ctx, id.Sub)
	if err := errors.Join(treesErr, boardErr); err != nil {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "remove user data", err))
	}
	a.Log.InfoContext(ctx, "user data removed", "trees", n, "user", id.Sub)
	return httpx.JSON(http.StatusOK, api.Removed{Trees: n})
}

// removeTrees deletes all of a user's trees, at most DeleteConcurrency at a
// time. Every failure is collected; the count covers the successes. A tree
// whose record was deleted but whose blobs were not counts as a failure.
func (a *App) removeTrees(ctx context.Context, userID string) (int, error) {
	trees, err := a.Trees.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(max(1, a.Env.DeleteConcurrency))
	for _, t := range trees {
		g.Go(func() error {
			deleted, err := a.Trees.Delete(ctx, userID, t.ID)
			if err == nil {
				err = a.removeBlobs(ctx, deleted)
			}
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("tree %s: %w", t.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait() // workers report through errs
	return len(trees) - len(errs), errors.Join(errs...)
}

// removeBlobs deletes the images of t. Already missing blobs are fine.
func (a *App) removeBlobs(ctx context.Context, t models.Tree) error {
	var errs []error
	for _, u := range t.BlobURLs() {
		name, ok := a.Blobs.NameFromURL(u)
		if !ok {
			continue
		}
		if err := a.Blobs.Delete(ctx, name); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
