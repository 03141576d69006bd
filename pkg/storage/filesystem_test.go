package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	relPath, err := store.Save("school-1/job-1.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "school-1/job-1.csv", relPath)

	file, err := store.Open(relPath)
	require.NoError(t, err)
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	file.Close()
	assert.Equal(t, "a,b\n1,2\n", string(content))

	require.NoError(t, store.Delete(relPath))
	_, err = store.Open(relPath)
	require.Error(t, err)

	// Deleting a missing file is not an error.
	require.NoError(t, store.Delete(relPath))
}

func TestLocalStorageResolvesInsideBase(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	relPath, err := store.Save("/school-1/../school-1/job.csv", []byte("x"))
	require.NoError(t, err)

	file, err := store.Open(relPath)
	require.NoError(t, err)
	defer file.Close()

	abs, err := filepath.Abs(file.Name())
	require.NoError(t, err)
	baseAbs, err := filepath.Abs(base)
	require.NoError(t, err)
	rel, err := filepath.Rel(baseAbs, abs)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(rel))
	assert.NotEqual(t, "..", rel[:2])

	_, err = os.Stat(filepath.Join(baseAbs, "school-1", "job.csv"))
	require.NoError(t, err)
}
