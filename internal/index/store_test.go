package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestStorePutAndTags tests recording and reading back tag mappings
func TestStorePutAndTags(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	tags := map[string]string{"mice": "G1", "day": "02"}
	require.NoError(t, s.Put(ctx, "/data", "/data/mice-G1/day-02/file.npy", tags))

	got, err := s.Tags(ctx, "/data/mice-G1/day-02/file.npy")
	require.NoError(t, err)
	assert.Equal(t, tags, got)

	// A second put replaces the markings wholesale.
	require.NoError(t, s.Put(ctx, "/data", "/data/mice-G1/day-02/file.npy",
		map[string]string{"mice": "G2"}))
	got, err = s.Tags(ctx, "/data/mice-G1/day-02/file.npy")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mice": "G2"}, got)

	// Unindexed paths yield an empty mapping, not an error.
	got, err = s.Tags(ctx, "/data/unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func seedStore(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	files := []struct {
		path string
		tags map[string]string
	}{
		{"/data/mice-G1/day-01/file.npy", map[string]string{"mice": "G1", "day": "01"}},
		{"/data/mice-G1/day-02/file.npy", map[string]string{"mice": "G1", "day": "02"}},
		{"/data/mice-G2/day-01/file.npy", map[string]string{"mice": "G2", "day": "01"}},
	}
	for _, f := range files {
		require.NoError(t, s.Put(ctx, "/data", f.path, f.tags))
	}
	require.NoError(t, s.Put(ctx, "/other", "/other/mice-G9/day-09/file.npy",
		map[string]string{"mice": "G9", "day": "09"}))
}

// TestStoreQuery tests tag-filtered retrieval
func TestStoreQuery(t *testing.T) {
	s := memStore(t)
	seedStore(t, s)
	ctx := context.Background()

	tests := []struct {
		name    string
		root    string
		filters map[string][]string
		want    []string
	}{
		{
			name:    "single tag single value",
			root:    "/data",
			filters: map[string][]string{"mice": {"G1"}},
			want: []string{
				"/data/mice-G1/day-01/file.npy",
				"/data/mice-G1/day-02/file.npy",
			},
		},
		{
			name:    "value alternatives",
			root:    "/data",
			filters: map[string][]string{"day": {"01", "02"}},
			want: []string{
				"/data/mice-G1/day-01/file.npy",
				"/data/mice-G1/day-02/file.npy",
				"/data/mice-G2/day-01/file.npy",
			},
		},
		{
			name:    "all filters must hold",
			root:    "/data",
			filters: map[string][]string{"mice": {"G1"}, "day": {"01"}},
			want:    []string{"/data/mice-G1/day-01/file.npy"},
		},
		{
			name:    "no filters lists the root",
			root:    "/data",
			filters: nil,
			want: []string{
				"/data/mice-G1/day-01/file.npy",
				"/data/mice-G1/day-02/file.npy",
				"/data/mice-G2/day-01/file.npy",
			},
		},
		{
			name:    "empty root searches across layouts",
			root:    "",
			filters: map[string][]string{"mice": {"G9"}},
			want:    []string{"/other/mice-G9/day-09/file.npy"},
		},
		{
			name:    "no match",
			root:    "/data",
			filters: map[string][]string{"mice": {"G7"}},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := s.Query(ctx, tt.root, tt.filters)
			require.NoError(t, err)
			var paths []string
			for _, f := range files {
				paths = append(paths, f.Path)
			}
			assert.Equal(t, tt.want, paths)
		})
	}
}

// TestStoreQueryTags tests that query results carry their tag mappings
func TestStoreQueryTags(t *testing.T) {
	s := memStore(t)
	seedStore(t, s)

	files, err := s.Query(context.Background(), "/data", map[string][]string{"mice": {"G2"}})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, map[string]string{"mice": "G2", "day": "01"}, files[0].Tags)
}

// TestStorePurge tests removing a layout's files
func TestStorePurge(t *testing.T) {
	s := memStore(t)
	seedStore(t, s)
	ctx := context.Background()

	require.NoError(t, s.Purge(ctx, "/data"))

	files, err := s.Query(ctx, "/data", nil)
	require.NoError(t, err)
	assert.Empty(t, files)

	// Other roots are untouched.
	files, err = s.Query(ctx, "/other", nil)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

// TestStoreOnDisk tests the file-backed store and its lock path
func TestStoreOnDisk(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "index.sqlite")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "/data", "/data/a", map[string]string{"x": "1"}))

	got, err := s.Tags(ctx, "/data/a")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x": "1"}, got)
}
