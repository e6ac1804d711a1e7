package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FSStore stores artifacts as files under a local uploads directory and
// returns "/uploads/<name>" URIs, matching how the web layer serves them.
type FSStore struct {
	dir string
}

// NewFSStore creates the uploads directory if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir %s: %w", dir, err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(_ context.Context, content []byte, ext string) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyContent
	}
	if len(content) > MaxSize {
		return "", ErrTooLarge
	}

	name := uuid.New().String() + "." + sanitizeExt(ext)
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return "/uploads/" + name, nil
}

func (s *FSStore) Get(_ context.Context, uri string) ([]byte, error) {
	name := strings.TrimPrefix(uri, "/uploads/")
	// Reject anything that escapes the uploads directory.
	if name == uri || name != filepath.Base(name) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}
