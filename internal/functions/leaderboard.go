package functions

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/greengliwice/trees-backend/internal/api"
	"github.com/greengliwice/trees-backend/internal/apierr"
	"github.com/greengliwice/trees-backend/internal/ddb"
	"github.com/greengliwice/trees-backend/internal/form"
	"github.com/greengliwice/trees-backend/internal/httpx"
	"github.com/greengliwice/trees-backend/internal/models"
)

const (
	fieldUserName = "userName"
	fieldPoints   = "points"
)

func entryView(e models.LeaderboardEntry) api.LeaderboardEntry {
	return api.LeaderboardEntry{UserName: e.UserName, Points: e.Points}
}

// points reads the points field, which must be an integer not lower than lowest.
func (a *App) points(f form.Form, lowest int) (int, error) {
	raw, _ := f.Field(fieldPoints)
	n, ok := a.numbers.Integer(strings.TrimSpace(raw), lowest)
	if !ok {
		return 0, apierr.New(apierr.CodeInvalidFields, "invalid points")
	}
	return n, nil
}

// CreateLeaderboardEntry handles POST /my/leaderboard.
func (a *App) CreateLeaderboardEntry(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "create-leaderboard-entry"
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	f, err := readForm(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	name, _ := f.Field(fieldUserName)
	if name = strings.TrimSpace(name); name == "" {
		return a.fail(ctx, fn, apierr.New(apierr.CodeInvalidFields, "invalid userName"))
	}
	points, err := a.points(f, 0)
	if err != nil {
		return a.fail(ctx, fn, err)
	}

	e, err := a.Board.Create(ctx, id.Sub, name, points)
	if errors.Is(err, ddb.ErrExists) {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeConflict, "entry already exists", err))
	}
	if err != nil {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "create entry", err))
	}
	a.Log.InfoContext(ctx, "entry created", "user", id.Sub, "points", e.Points)
	return httpx.JSON(http.StatusCreated, entryView(e))
}

// GetLeaderboardEntries handles GET /leaderboard.
func (a *App) GetLeaderboardEntries(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "get-leaderboard-entries"
	entries, err := a.Board.List(ctx)
	if err != nil {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "list entries", err))
	}
	out := api.Leaderboard{Entries: make([]api.LeaderboardEntry, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, entryView(e))
	}
	return httpx.JSON(http.StatusOK, out)
}

// GetMyLeaderboardEntry handles GET /my/leaderboard. The list holds zero or one entry.
func (a *App) GetMyLeaderboardEntry(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "get-my-leaderboard-entry"
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	out := api.Leaderboard{Entries: []api.LeaderboardEntry{}}
	e, err := a.Board.Get(ctx, id.Sub)
	switch {
	case errors.Is(err, ddb.ErrNotFound):
	case err != nil:
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "get entry", err))
	default:
		out.Entries = append(out.Entries, entryView(e))
	}
	return httpx.JSON(http.StatusOK, out)
}

// IncrementLeaderboardPoints handles POST /my/leaderboard/points.
func (a *App) IncrementLeaderboardPoints(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "increment-leaderboard-points"
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	f, err := readForm(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	delta, err := a.points(f, 1)
	if err != nil {
		return a.fail(ctx, fn, err)
	}

	e, err := a.Board.AddPoints(ctx, id.Sub, delta)
	if errors.Is(err, ddb.ErrNotFound) {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeInvalidFields, "user entry not found", err))
	}
	if err != nil {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "add points", err))
	}
	a.Log.InfoContext(ctx, "points added", "user", id.Sub, "delta", delta, "points", e.Points)
	return httpx.JSON(http.StatusOK, entryView(e))
}

// RemoveMyLeaderboardEntry handles DELETE /my/leaderboard.
func (a *App) RemoveMyLeaderboardEntry(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	const fn = "remove-my-leaderboard-entry"
	id, err := a.caller(req)
	if err != nil {
		return a.fail(ctx, fn, err)
	}
	if err := a.Board.Delete(ctx, id.Sub); err != nil {
		return a.fail(ctx, fn, apierr.Wrap(apierr.CodeStoreFailure, "delete entry", err))
	}
	return httpx.NoContent()
}
