// Package main runs every function behind one local HTTP server. Against a
// local endpoint (AWS_ENDPOINT_URL) the Trees and Leaderboard tables are
// created on start.
package main

import (
	"context"
	"log"

	"github.com/greengliwice/trees-backend/internal/bootstrap"
	"github.com/greengliwice/trees-backend/internal/config"
	"github.com/greengliwice/trees-backend/internal/devserver"
)

func main() {
	ctx := context.Background()
	env := config.MustLoad()
	d, err := bootstrap.Open(ctx, env)
	if err != nil {
		log.Fatal(err)
	}

	if d.Endpoint != "" {
		if _, err := d.Trees.EnsureTable(ctx); err != nil {
			log.Fatal(err)
		}
		if _, err := d.Board.EnsureTable(ctx); err != nil {
			log.Fatal(err)
		}
	}

	app := d.App()
	r := devserver.Router(app.Routes(), d.Log)
	d.Log.Info("devserver listening", "addr", env.DevAddr, "blobs", d.Blobs.Driver())
	if err := r.Run(env.DevAddr); err != nil {
		log.Fatal(err)
	}
}
