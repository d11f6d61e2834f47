package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes files under a directory served statically by the app.
type LocalStore struct {
	root      string
	publicURL string
}

// NewLocalStore creates root if needed. publicURL is the path prefix the
// directory is mounted at, for example "/uploads".
func NewLocalStore(root, publicURL string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("media root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &LocalStore{
		root:      root,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *LocalStore) Backend() string { return BackendLocal }

// Root is the directory files are written to.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Put(ctx context.Context, key, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := filepath.Base(filepath.Clean("/" + key))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	// #nosec G306: uploads are public content served by the app
	if err := os.WriteFile(filepath.Join(s.root, name), data, 0o640); err != nil {
		return "", err
	}
	return s.publicURL + "/" + name, nil
}
