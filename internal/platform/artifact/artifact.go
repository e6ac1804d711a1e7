// Package artifact provides durable storage for uploaded scan images.
// A stored artifact is addressed by an opaque URI that is persisted on the
// scan record; re-analysis resolves the same URI back to bytes.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrNotFound     = errors.New("artifact not found")
	ErrTooLarge     = errors.New("artifact exceeds maximum allowed size")
	ErrEmptyContent = errors.New("artifact content is empty")
)

// MaxSize is the maximum allowed artifact size in bytes (50 MB).
const MaxSize = 50 * 1024 * 1024

// Store is the artifact storage contract.
type Store interface {
	// Put persists content and returns a stable URI for it. ext is a
	// suggested file extension without the dot ("jpg", "png", ...).
	Put(ctx context.Context, content []byte, ext string) (string, error)
	// Get resolves a URI previously returned by Put back to its bytes.
	Get(ctx context.Context, uri string) ([]byte, error)
}

// sanitizeExt strips path separators and dots from a caller-supplied
// extension, falling back to "bin".
func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	ext = strings.Trim(ext, ".")
	if ext == "" || strings.ContainsAny(ext, "/\\.") {
		return "bin"
	}
	return ext
}

// MemStore is a thread-safe, in-memory Store for tests and development.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	seq   int
}

// NewMemStore returns a ready-to-use MemStore.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[string][]byte)}
}

func (s *MemStore) Put(_ context.Context, content []byte, ext string) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyContent
	}
	if len(content) > MaxSize {
		return "", ErrTooLarge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	uri := fmt.Sprintf("mem://%s/%d", sanitizeExt(ext), s.seq)
	buf := make([]byte, len(content))
	copy(buf, content)
	s.blobs[uri] = buf
	return uri, nil
}

func (s *MemStore) Get(_ context.Context, uri string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[uri]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
