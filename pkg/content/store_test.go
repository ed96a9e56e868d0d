package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/vango-dev/poolserve/pkg/httpwire"
)

func memStore(t *testing.T, opts ResolveOptions, files map[string]string) *FSStore {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range files {
		if err := afero.WriteFile(fs, filepath.Join("/srv/content", name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewFSStore(fs, "/srv/content", opts)
}

func TestFSStore_Resolve(t *testing.T) {
	s := memStore(t, ResolveOptions{}, nil)

	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "/hello.txt", want: "/srv/content/hello.txt"},
		{path: "/a/b/c.html", want: "/srv/content/a/b/c.html"},
		{path: "/", want: "/srv/content"},
		{path: "hello.txt", wantErr: true},
		{path: "", wantErr: true},
		{path: "/../etc/passwd", wantErr: true},
		{path: "/a/../../x", wantErr: true},
		{path: "/./x", wantErr: true},
		{path: "//etc/passwd", wantErr: true},
		{path: "/a\\b", wantErr: true},
		{path: "/a\x00b", wantErr: true},
	}

	for _, tt := range tests {
		got, err := s.Resolve(tt.path)
		if tt.wantErr {
			if !errors.Is(err, httpwire.ErrMalformedPath) {
				t.Errorf("Resolve(%q) error = %v, want ErrMalformedPath", tt.path, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Resolve(%q) error: %v", tt.path, err)
			continue
		}
		if got != filepath.FromSlash(tt.want) {
			t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFSStore_ResolveAllowDotSegments(t *testing.T) {
	s := memStore(t, ResolveOptions{AllowDotSegments: true}, nil)

	got, err := s.Resolve("/../secret.txt")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if want := filepath.FromSlash("/srv/secret.txt"); got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}

	if _, err := s.Resolve("no-slash"); !errors.Is(err, httpwire.ErrMalformedPath) {
		t.Errorf("Resolve(no-slash) error = %v, want ErrMalformedPath", err)
	}
}

func TestFSStore_ExistsAndRead(t *testing.T) {
	ctx := context.Background()
	s := memStore(t, ResolveOptions{}, map[string]string{
		"hello.txt":     "hi",
		"empty.txt":     "",
		"docs/guide.md": "# guide",
	})

	for path, want := range map[string]string{"/hello.txt": "hi", "/empty.txt": "", "/docs/guide.md": "# guide"} {
		resolved, err := s.Resolve(path)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", path, err)
		}
		ok, err := s.Exists(ctx, resolved)
		if err != nil || !ok {
			t.Fatalf("Exists(%q) = %v, %v; want true", resolved, ok, err)
		}
		data, err := s.Read(ctx, resolved)
		if err != nil {
			t.Fatalf("Read(%q) error: %v", resolved, err)
		}
		if data == nil || string(data) != want {
			t.Errorf("Read(%q) = %q, want %q", resolved, data, want)
		}
	}

	resolved, _ := s.Resolve("/missing.txt")
	ok, err := s.Exists(ctx, resolved)
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v; want false, nil", ok, err)
	}
	if _, err := s.Read(ctx, resolved); !errors.Is(err, httpwire.ErrIO) {
		t.Errorf("Read(missing) error = %v, want ErrIO", err)
	}
}

func TestFSStore_ReadDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	s := NewFSStore(afero.NewOsFs(), dir, ResolveOptions{})
	resolved, _ := s.Resolve("/docs")

	ok, err := s.Exists(context.Background(), resolved)
	if err != nil || !ok {
		t.Fatalf("Exists(dir) = %v, %v; want true", ok, err)
	}
	if _, err := s.Read(context.Background(), resolved); !errors.Is(err, httpwire.ErrIO) {
		t.Errorf("Read(dir) error = %v, want ErrIO", err)
	}
}

func TestNewOSStore(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewOSStore(dir, ResolveOptions{})
	if err != nil {
		t.Fatalf("NewOSStore() error: %v", err)
	}
	if s.Root() != dir {
		t.Errorf("Root() = %q, want %q", s.Root(), dir)
	}
	if s.String() != "fs:"+dir {
		t.Errorf("String() = %q", s.String())
	}

	resolved, _ := s.Resolve("/index.html")
	data, err := s.Read(context.Background(), resolved)
	if err != nil || string(data) != "<h1>hi</h1>" {
		t.Errorf("Read() = %q, %v", data, err)
	}
}

func TestNewOSStore_RelativeDirAnchorsAtWorkingDirectory(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewOSStore("", ResolveOptions{})
	if err != nil {
		t.Fatalf("NewOSStore() error: %v", err)
	}
	if want := filepath.Join(cwd, DefaultDir); s.Root() != want {
		t.Errorf("Root() = %q, want %q", s.Root(), want)
	}
}
