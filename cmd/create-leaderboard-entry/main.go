// Package main registers the caller on the leaderboard.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/greengliwice/trees-backend/internal/bootstrap"
)

func main() {
	app := bootstrap.MustApp(context.Background())
	lambda.Start(app.CreateLeaderboardEntry)
}
