// Package main is the operator CLI: table setup, dictionary seeding and the
// anonymized tree counts export.
package main

import (
	"context"
	"os"

	"github.com/greengliwice/trees-backend/internal/bootstrap"
	"github.com/greengliwice/trees-backend/internal/config"
)

func openFromEnv(ctx context.Context) (*bootstrap.Deps, error) {
	env, err := config.Load()
	if err != nil {
		return nil, err
	}
	return bootstrap.Open(ctx, env)
}

func main() {
	if err := newRootCommand(openFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}
