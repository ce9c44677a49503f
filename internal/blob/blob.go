// Package blob issues time-limited URLs for recording objects and reads them
// back for transcription.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// ErrNotFound is returned by Open when the object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is the object store recordings live in.
type Store interface {
	// UploadURL returns a URL the client can PUT the object to until ttl elapses.
	UploadURL(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	// DownloadURL returns a URL the object can be fetched from until ttl elapses.
	DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Open streams the object content.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MemoryStore keeps objects in memory and hands out opaque memory:// URLs.
// Each URL carries a sequence number so two calls never return the same one.
type MemoryStore struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	seq     int
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(bucket string) *MemoryStore {
	if bucket == "" {
		bucket = "local"
	}
	return &MemoryStore{bucket: bucket, objects: make(map[string][]byte), now: time.Now}
}

// Put stores an object directly, standing in for the client-side upload.
func (m *MemoryStore) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
}

func (m *MemoryStore) UploadURL(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return m.sign("PUT", key, contentType, ttl), nil
}

func (m *MemoryStore) DownloadURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return m.sign("GET", key, "", ttl), nil
}

func (m *MemoryStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) sign(method, key, contentType string, ttl time.Duration) string {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	q := url.Values{}
	q.Set("method", method)
	q.Set("expires", m.now().Add(ttl).UTC().Format(time.RFC3339))
	q.Set("sig", fmt.Sprintf("%d", seq))
	if contentType != "" {
		q.Set("contentType", contentType)
	}
	u := url.URL{Scheme: "memory", Host: m.bucket, Path: "/" + key, RawQuery: q.Encode()}
	return u.String()
}
