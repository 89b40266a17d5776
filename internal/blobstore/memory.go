package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
}

// Memory is an in-process Store. Intended for tests and the dev server.
type Memory struct {
	bucket string

	mu        sync.RWMutex
	created   bool
	objs      map[string]memObject
	FailPut   func(name string) error // optional fault injection
	puts      int
	deletions []string
}

// NewMemory returns an empty in-memory store for bucket.
func NewMemory(bucket string) *Memory {
	return &Memory{bucket: bucket, objs: make(map[string]memObject)}
}

// Driver returns the blob driver identifier.
func (m *Memory) Driver() Driver { return DriverMemory }

// EnsureContainer marks the container as created.
func (m *Memory) EnsureContainer(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = true
	return nil
}

// Put stores a copy of data.
func (m *Memory) Put(_ context.Context, name string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.created {
		return "", fmt.Errorf("blobstore: container %s does not exist", m.bucket)
	}
	if m.FailPut != nil {
		if err := m.FailPut(name); err != nil {
			return "", err
		}
	}
	m.objs[name] = memObject{data: append([]byte(nil), data...), contentType: contentType}
	m.puts++
	return m.url(name), nil
}

// Delete removes name.
func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(m.objs, name)
	m.deletions = append(m.deletions, name)
	return nil
}

// PresignGet returns the blob URL with an expiry query parameter.
func (m *Memory) PresignGet(_ context.Context, name string, ttl time.Duration) (string, error) {
	q := url.Values{"expires": {time.Now().Add(ttl).UTC().Format(time.RFC3339)}}
	return m.url(name) + "?" + q.Encode(), nil
}

// NameFromURL recovers the blob name from a URL returned by Put.
func (m *Memory) NameFromURL(blobURL string) (string, bool) {
	return nameFromPath(blobURL, m.bucket)
}

func (m *Memory) url(name string) string {
	return "memory://blobs/" + m.bucket + "/" + name
}

// Object returns the stored bytes and content type of name.
func (m *Memory) Object(name string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objs[name]
	return o.data, o.contentType, ok
}

// Names returns the sorted names of stored blobs.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.objs))
	for k := range m.objs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Puts returns how many uploads succeeded.
func (m *Memory) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

// Deletions returns the names deleted so far, in order.
func (m *Memory) Deletions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deletions...)
}
