package pathresolver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zynqcloud/httpd/internal/pathresolver"
)

func newTestResolver(t *testing.T) *pathresolver.Resolver {
	t.Helper()
	root := t.TempDir()
	r, err := pathresolver.New(root)
	require.NoError(t, err)
	return r
}

func TestResolveIndexOnEmptyPath(t *testing.T) {
	r := newTestResolver(t)
	path, ok := r.Resolve("/")
	require.True(t, ok)
	require.Equal(t, filepath.Join(r.Root(), "index.html"), path)
}

func TestResolveRegularFile(t *testing.T) {
	r := newTestResolver(t)
	path, ok := r.Resolve("/about.html")
	require.True(t, ok)
	require.Equal(t, filepath.Join(r.Root(), "about.html"), path)
}

func TestResolveQueryAndFragmentDiscarded(t *testing.T) {
	r := newTestResolver(t)
	path, ok := r.Resolve("/logo.png?x=1#frag")
	require.True(t, ok)
	require.Equal(t, filepath.Join(r.Root(), "logo.png"), path)
}

func TestResolveRejectsTraversal(t *testing.T) {
	r := newTestResolver(t)
	cases := []string{
		"/../etc/passwd",
		"/a/../../etc/passwd",
		"/..%2f..%2fetc/passwd",
		"//evil",
	}
	for _, c := range cases {
		_, ok := r.Resolve(c)
		require.Falsef(t, ok, "expected %q to be rejected", c)
	}
}

func TestResolvePercentDecoding(t *testing.T) {
	r := newTestResolver(t)
	path, ok := r.Resolve("/hello%20world.html")
	require.True(t, ok)
	require.Equal(t, filepath.Join(r.Root(), "hello world.html"), path)
}

func TestResolveSymlinkEscapeRejected(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.html"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.html"), filepath.Join(root, "link.html")))

	r, err := pathresolver.New(root)
	require.NoError(t, err)

	_, ok := r.Resolve("/link.html")
	require.False(t, ok)
}
