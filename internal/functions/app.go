// Package functions implements the HTTP functions. Each cmd/<name> binary
// builds an App with the collaborators it needs and starts one handler.
package functions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/greengliwice/trees-backend/internal/apierr"
	"github.com/greengliwice/trees-backend/internal/authz"
	"github.com/greengliwice/trees-backend/internal/blobstore"
	"github.com/greengliwice/trees-backend/internal/config"
	"github.com/greengliwice/trees-backend/internal/ddb"
	"github.com/greengliwice/trees-backend/internal/form"
	"github.com/greengliwice/trees-backend/internal/httpx"
	"github.com/greengliwice/trees-backend/internal/models"
	"github.com/greengliwice/trees-backend/internal/validate"
)

// Handler is the signature lambda.Start receives.
type Handler func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// DictStore serves the reference data.
type DictStore interface {
	EnsureSeeded(ctx context.Context, items []models.DictItem) (bool, error)
	ListByType(ctx context.Context, t models.DictType) ([]models.DictItem, error)
}

// TreeStore reads and deletes tree records.
type TreeStore interface {
	GetForUser(ctx context.Context, userID, treeID string) (models.Tree, error)
	Get(ctx context.Context, treeID string) (models.Tree, error)
	ListByUser(ctx context.Context, userID string) ([]models.Tree, error)
	ListAll(ctx context.Context) ([]models.Tree, error)
	Delete(ctx context.Context, userID, treeID string) (models.Tree, error)
}

// Leaderboard stores one score per user.
type Leaderboard interface {
	Create(ctx context.Context, userID, userName string, points int) (models.LeaderboardEntry, error)
	Get(ctx context.Context, userID string) (models.LeaderboardEntry, error)
	List(ctx context.Context) ([]models.LeaderboardEntry, error)
	AddPoints(ctx context.Context, userID string, delta int) (models.LeaderboardEntry, error)
	Delete(ctx context.Context, userID string) error
}

// Submitter runs the tree submission pipeline.
type Submitter interface {
	Submit(ctx context.Context, userID string, f form.Form) (models.Tree, error)
}

// App holds the configuration and the collaborators of the functions.
// Fields a function does not use may stay nil.
type App struct {
	Env    config.Env
	Log    *slog.Logger
	Auth   authz.Resolver
	Dicts  DictStore
	Seed   []models.DictItem
	Trees  TreeStore
	Board  Leaderboard
	Blobs  blobstore.Store
	Submit Submitter

	numbers *validate.Engine
}

// NewApp returns an App with the identity rules derived from env.
func NewApp(env config.Env, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	return &App{
		Env: env,
		Log: log,
		Auth: authz.Resolver{
			DevBypass:   env.DevBypassAuth,
			Development: env.Development(),
			AdminIDs:    env.AdminUserIDs,
		},
		numbers: validate.New(validate.Rules{}),
	}
}

// caller resolves the request identity.
func (a *App) caller(req events.APIGatewayV2HTTPRequest) (authz.Identity, error) {
	id, err := a.Auth.FromAPIGWv2(req)
	if err != nil {
		return authz.Identity{}, apierr.Wrap(apierr.CodeUnauthorized, "missing user", err)
	}
	return id, nil
}

// fail logs infrastructure errors once and shapes err into a response.
func (a *App) fail(ctx context.Context, fn string, err error) (events.APIGatewayV2HTTPResponse, error) {
	if apierr.IsClient(err) {
		a.Log.DebugContext(ctx, "request rejected", "fn", fn, "code", apierr.CodeOf(err), "error", err)
	} else {
		a.Log.ErrorContext(ctx, "request failed", "fn", fn, "error", err)
	}
	return httpx.FromError(err)
}

// notFound turns a repository miss into a 404 and wraps anything else.
func notFound(err error, what string) error {
	if errors.Is(err, ddb.ErrNotFound) {
		return apierr.Wrap(apierr.CodeNotFound, what+" not found", err)
	}
	return apierr.Wrap(apierr.CodeStoreFailure, "load "+what, err)
}

// readForm decodes a multipart body, reporting an absent one as MissingBody.
func readForm(req events.APIGatewayV2HTTPRequest) (form.Form, error) {
	if req.Body == "" {
		return form.Form{}, apierr.New(apierr.CodeMissingBody, "no body")
	}
	f, err := form.FromRequest(req)
	if err != nil {
		return form.Form{}, apierr.Wrap(apierr.CodeMissingBody, "invalid body", err)
	}
	return f, nil
}

// expiresIn is the lifetime of presigned read URLs in seconds.
func (a *App) expiresIn() int {
	return int(a.Env.ReadURLTTL.Seconds())
}

// presign replaces every blob URL of t with a time-limited read URL.
func (a *App) presign(ctx context.Context, t models.Tree) (models.Tree, error) {
	for _, u := range []*string{&t.TreeImageURL, &t.TreeThumbnailURL, &t.LeafImageURL, &t.BarkImageURL} {
		if *u == "" {
			continue
		}
		name, ok := a.Blobs.NameFromURL(*u)
		if !ok {
			continue
		}
		signed, err := a.Blobs.PresignGet(ctx, name, a.Env.ReadURLTTL)
		if err != nil {
			return models.Tree{}, apierr.Wrap(apierr.CodeStoreFailure, "presign "+name, err)
		}
		*u = signed
	}
	return t, nil
}
