// Package bootstrap wires the AWS clients, repositories and services shared
// by the cmd binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/greengliwice/trees-backend/internal/awsutil"
	"github.com/greengliwice/trees-backend/internal/blobstore"
	"github.com/greengliwice/trees-backend/internal/config"
	"github.com/greengliwice/trees-backend/internal/ddb"
	"github.com/greengliwice/trees-backend/internal/dicts"
	"github.com/greengliwice/trees-backend/internal/functions"
	"github.com/greengliwice/trees-backend/internal/geocode"
	"github.com/greengliwice/trees-backend/internal/logging"
	"github.com/greengliwice/trees-backend/internal/submission"
)

// Deps are the collaborators built from one Env.
type Deps struct {
	Env      config.Env
	Log      *slog.Logger
	Endpoint string

	Dicts *ddb.DictRepo
	Trees *ddb.TreeRepo
	Board *ddb.LeaderboardRepo
	Blobs blobstore.Store
	Geo   geocode.Resolver
}

// Open builds the clients for env. Nothing is contacted yet.
func Open(ctx context.Context, env config.Env) (*Deps, error) {
	logger := logging.Setup(env.LogLevel)

	cfg, endpoint, err := awsutil.Load(ctx, env.Region)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	db := dynamodb.NewFromConfig(cfg)

	blobs, err := blobstore.Open(env, cfg, endpoint)
	if err != nil {
		return nil, err
	}

	return &Deps{
		Env:      env,
		Log:      logger,
		Endpoint: endpoint,
		Dicts:    &ddb.DictRepo{DB: db, Table: env.DictsTable},
		Trees:    &ddb.TreeRepo{DB: db, Table: env.TreesTable},
		Board:    &ddb.LeaderboardRepo{DB: db, Table: env.LeaderboardTable},
		Blobs:    blobs,
		Geo:      geocode.NewOSM(env.GeocoderURL),
	}, nil
}

// App assembles the functions over d.
func (d *Deps) App() *functions.App {
	app := functions.NewApp(d.Env, d.Log)
	app.Dicts = d.Dicts
	app.Seed = dicts.MustSeed()
	app.Trees = d.Trees
	app.Board = d.Board
	app.Blobs = d.Blobs
	app.Submit = submission.New(submission.ConfigFromEnv(d.Env), d.Dicts, d.Trees, d.Blobs, d.Geo, d.Log)
	return app
}

// MustApp loads the environment and returns the wired App, exiting on failure.
func MustApp(ctx context.Context) *functions.App {
	env, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	d, err := Open(ctx, env)
	if err != nil {
		log.Fatal(err)
	}
	return d.App()
}
