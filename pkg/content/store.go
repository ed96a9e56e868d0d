// Package content maps request paths onto stored files.
//
// Two backends are provided: FSStore, which serves a directory through an
// afero filesystem, and S3Store, which serves objects under a bucket prefix.
package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/vango-dev/poolserve/pkg/httpwire"
)

// DefaultDir is the content directory, relative to the working directory.
const DefaultDir = "content"

// Store resolves request paths and reads the content behind them.
// Implementations must be safe for concurrent use.
type Store interface {
	// Resolve maps a request path such as "/hello.txt" to a backend location.
	Resolve(requestPath string) (string, error)

	// Exists reports whether the resolved location exists.
	Exists(ctx context.Context, resolved string) (bool, error)

	// Read returns the full content at the resolved location.
	Read(ctx context.Context, resolved string) ([]byte, error)

	// String describes the store for logs.
	String() string
}

// ResolveOptions controls path validation.
type ResolveOptions struct {
	// AllowDotSegments passes "." and ".." segments through to the backend
	// unchanged. When false they are rejected as malformed paths.
	AllowDotSegments bool
}

// relativePath strips the leading slash from a request path and validates it.
func relativePath(requestPath string, opts ResolveOptions) (string, error) {
	rel, ok := strings.CutPrefix(requestPath, "/")
	if !ok {
		return "", fmt.Errorf("%w: %q has no leading slash", httpwire.ErrMalformedPath, requestPath)
	}
	if opts.AllowDotSegments {
		return rel, nil
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", fmt.Errorf("%w: NUL byte", httpwire.ErrMalformedPath)
	}
	// Reject platform-dependent separators.
	if strings.Contains(rel, "\\") {
		return "", fmt.Errorf("%w: backslash in %q", httpwire.ErrMalformedPath, requestPath)
	}
	// "//etc/passwd" would otherwise become an absolute path.
	if strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: absolute path %q", httpwire.ErrMalformedPath, requestPath)
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: dot segment in %q", httpwire.ErrMalformedPath, requestPath)
		}
	}

	return rel, nil
}

// FSStore serves files below a root directory of an afero filesystem.
type FSStore struct {
	fs   afero.Fs
	root string
	opts ResolveOptions
}

// NewFSStore serves root on fs.
func NewFSStore(fs afero.Fs, root string, opts ResolveOptions) *FSStore {
	return &FSStore{fs: fs, root: root, opts: opts}
}

// NewOSStore serves dir from the OS filesystem. A relative dir is anchored at
// the current working directory.
func NewOSStore(dir string, opts ResolveOptions) (*FSStore, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("content: resolve working directory: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}
	return NewFSStore(afero.NewOsFs(), dir, opts), nil
}

// Root returns the content root.
func (s *FSStore) Root() string {
	return s.root
}

// Resolve implements Store.
func (s *FSStore) Resolve(requestPath string) (string, error) {
	rel, err := relativePath(requestPath, s.opts)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// Exists implements Store.
func (s *FSStore) Exists(_ context.Context, resolved string) (bool, error) {
	ok, err := afero.Exists(s.fs, resolved)
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", httpwire.ErrIO, resolved, err)
	}
	return ok, nil
}

// Read implements Store.
func (s *FSStore) Read(_ context.Context, resolved string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", httpwire.ErrIO, resolved, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// String implements Store.
func (s *FSStore) String() string {
	return "fs:" + s.root
}
