// Package main accepts a tree submission from the mobile app and stores its record and images.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/greengliwice/trees-backend/internal/bootstrap"
)

func main() {
	app := bootstrap.MustApp(context.Background())
	lambda.Start(app.CreateMyTree)
}
