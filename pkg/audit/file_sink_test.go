package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkWritesNDJSON(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(FileSinkConfig{BasePath: dir})
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		require.NoError(t, sink.Append(context.Background(), entry(id)))
	}
	require.NoError(t, sink.Close())

	f, err := os.Open(filepath.Join(dir, "access.log"))
	require.NoError(t, err)
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		ids = append(ids, e.ID)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestFileSinkRotation(t *testing.T) {
	dir := t.TempDir()
	// One byte forces a rotation before every append after the first.
	sink, err := NewFileSink(FileSinkConfig{BasePath: dir, MaxSize: 1, MaxFiles: 10})
	require.NoError(t, err)

	require.NoError(t, sink.Append(context.Background(), entry("a")))
	require.NoError(t, sink.Append(context.Background(), entry("b")))
	require.NoError(t, sink.Close())

	rotated, err := filepath.Glob(filepath.Join(dir, "access-*.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, rotated, "a rotated file exists")

	// The active file holds only the entry written after rotation.
	data, err := os.ReadFile(filepath.Join(dir, "access.log"))
	require.NoError(t, err)
	var e Entry
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, "b", e.ID)
}

func TestFileSinkCloseIdempotent(t *testing.T) {
	sink, err := NewFileSink(FileSinkConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	assert.NoError(t, sink.Close())
}
