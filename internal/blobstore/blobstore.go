// Package blobstore stores tree images in a single container (bucket) and
// hands out time-limited read URLs for them.
package blobstore

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Driver identifies a concrete backend.
type Driver string

// Possible values for Driver
const (
	DriverS3     Driver = "s3"
	DriverMinio  Driver = "minio"
	DriverMemory Driver = "memory" // tests and local dev
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("blobstore: not found")

// Store is the narrow object store surface the functions need.
type Store interface {
	// EnsureContainer creates the container unless it already exists.
	EnsureContainer(ctx context.Context) error
	// Put uploads data under name and returns the blob URL.
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
	// PresignGet returns a read-only URL for name valid for ttl.
	PresignGet(ctx context.Context, name string, ttl time.Duration) (string, error)
	// NameFromURL recovers the blob name from a URL returned by Put.
	NameFromURL(blobURL string) (string, bool)
	Driver() Driver
}

// NewName returns a fresh unique blob name carrying ext.
func NewName(ext string) string {
	return uuid.NewString() + "." + strings.TrimPrefix(ext, ".")
}

// ThumbnailName derives the thumbnail blob name from the original's.
func ThumbnailName(name string) string {
	return "thumbnail-" + name
}

// WithExt replaces the extension of name with ext.
func WithExt(name, ext string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + "." + strings.TrimPrefix(ext, ".")
}

// nameFromPath strips an optional leading "/<bucket>/" from a URL path.
func nameFromPath(rawURL, bucket string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	p := strings.TrimPrefix(u.Path, "/")
	p = strings.TrimPrefix(p, bucket+"/")
	if p == "" {
		return "", false
	}
	return p, true
}
