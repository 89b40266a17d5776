// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// State description policies, picked per deployment.
const (
	StateDescriptionRequired        = "required"
	StateDescriptionOptional        = "optional"
	StateDescriptionUnlessUnhealthy = "unless-unhealthy"
)

// Env holds the configuration values for the application.
type Env struct {
	Region      string
	Environment string

	TreesTable       string
	DictsTable       string
	LeaderboardTable string

	ImagesBucket   string
	BlobDriver     string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	ReadURLTTL     time.Duration

	GeocoderURL string

	HealthyLabel           string
	UnhealthyLabel         string
	StateDescriptionPolicy string
	RequireDescription     bool

	DeleteConcurrency int
	AdminUserIDs      []string
	DevBypassAuth     bool

	LogLevel string
	DevAddr  string
}

// Development reports whether the functions run against development resources.
func (e Env) Development() bool {
	return strings.EqualFold(e.Environment, "development")
}

// MustLoad reads the environment variables and returns an Env struct.
func MustLoad() Env {
	e, err := Load()
	if err != nil {
		panic(err)
	}
	return e
}

// Load is MustLoad without the panic.
func Load() (Env, error) {
	ttlSec, err := strconv.Atoi(get("READ_URL_TTL_SECONDS", "3600"))
	if err != nil || ttlSec <= 0 {
		return Env{}, fmt.Errorf("invalid READ_URL_TTL_SECONDS %q", os.Getenv("READ_URL_TTL_SECONDS"))
	}
	concurrency, err := strconv.Atoi(get("DELETE_CONCURRENCY", "4"))
	if err != nil || concurrency <= 0 {
		return Env{}, fmt.Errorf("invalid DELETE_CONCURRENCY %q", os.Getenv("DELETE_CONCURRENCY"))
	}

	e := Env{
		Region:      get("AWS_REGION", "eu-central-1"),
		Environment: get("ENVIRONMENT", "production"),

		TreesTable:       get("TREES_TABLE", "Trees"),
		DictsTable:       get("DICTS_TABLE", "Dicts"),
		LeaderboardTable: get("LEADERBOARD_TABLE", "Leaderboard"),

		BlobDriver:     strings.ToLower(get("BLOB_DRIVER", "s3")),
		MinioEndpoint:  get("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: get("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: get("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    get("MINIO_USE_SSL", "") == "true",
		ReadURLTTL:     time.Duration(ttlSec) * time.Second,

		GeocoderURL: get("GEOCODER_URL", ""),

		HealthyLabel:           get("HEALTHY_LABEL", "zdrowe"),
		UnhealthyLabel:         get("UNHEALTHY_LABEL", "chore/uszkodzone"),
		StateDescriptionPolicy: get("STATE_DESCRIPTION_POLICY", StateDescriptionUnlessUnhealthy),
		RequireDescription:     get("REQUIRE_DESCRIPTION", "true") == "true",

		DeleteConcurrency: concurrency,
		AdminUserIDs:      splitList(get("ADMIN_USER_IDS", "")),
		DevBypassAuth:     get("DEV_BYPASS_AUTH", "") == "true",

		LogLevel: get("LOG_LEVEL", "info"),
		DevAddr:  get("DEV_ADDR", ":8080"),
	}

	bucket, err := must("IMAGES_BUCKET")
	if err != nil {
		return Env{}, err
	}
	if e.Development() {
		bucket += "-dev"
	}
	e.ImagesBucket = bucket

	switch e.StateDescriptionPolicy {
	case StateDescriptionRequired, StateDescriptionOptional, StateDescriptionUnlessUnhealthy:
	default:
		return Env{}, fmt.Errorf("invalid STATE_DESCRIPTION_POLICY %q", e.StateDescriptionPolicy)
	}
	switch e.BlobDriver {
	case "s3", "minio", "memory":
	default:
		return Env{}, fmt.Errorf("invalid BLOB_DRIVER %q", e.BlobDriver)
	}
	return e, nil
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// must returns the value of the environment variable k or an error if not set.
func must(k string) (string, error) {
	v := os.Getenv(k)
	if v == "" {
		return "", fmt.Errorf("missing env %s", k)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
