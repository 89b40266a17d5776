// Package main serves the species and state dictionaries, seeding them on first use.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/greengliwice/trees-backend/internal/bootstrap"
)

func main() {
	app := bootstrap.MustApp(context.Background())
	lambda.Start(app.ListDicts)
}
