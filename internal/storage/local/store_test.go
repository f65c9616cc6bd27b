// Package local_test tests the filesystem result store.
package local_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/linkprobe/internal/checker"
	"github.com/JakeFAU/linkprobe/internal/storage/local"
)

func readLines(t *testing.T, dir, name string) []string {
	t.Helper()
	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(filepath.Join(dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	trimmed := strings.TrimSuffix(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestNew(t *testing.T) {
	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "output")
		store, err := local.New(local.Config{Dir: dir})
		require.NoError(t, err)
		assert.Equal(t, dir, store.Dir())
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, 0, store.ProcessedCount())
	})

	t.Run("MissingDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("DirIsAFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
		_, err := local.New(local.Config{Dir: path})
		assert.Error(t, err)
	})

	t.Run("DirNotWritable", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("permission bits are not enforced for root")
		}
		dir := t.TempDir()
		// #nosec G302 -- directory permissions adjusted intentionally for test coverage.
		require.NoError(t, os.Chmod(dir, 0o500))
		_, err := local.New(local.Config{Dir: dir})
		assert.Error(t, err)
		// #nosec G302 -- reverting permissions to allow cleanup in the test environment.
		require.NoError(t, os.Chmod(dir, 0o700))
	})

	t.Run("LoadsCheckpointAsSet", func(t *testing.T) {
		dir := t.TempDir()
		content := "https://a.test\nhttps://b.test\nhttps://a.test\n\nhttps://c.test  \n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, local.ProcessedFile), []byte(content), 0o600))

		store, err := local.New(local.Config{Dir: dir})
		require.NoError(t, err)
		assert.Equal(t, 3, store.ProcessedCount())
		processed := store.Processed()
		assert.Contains(t, processed, "https://a.test")
		assert.Contains(t, processed, "https://c.test")
		assert.True(t, store.HasBeenRecorded("https://b.test"))
	})

	t.Run("LoadsCheckpointWithLongLines", func(t *testing.T) {
		dir := t.TempDir()
		long := "https://a.test/?q=" + strings.Repeat("x", 2<<20)
		content := long + "\nhttps://b.test"
		require.NoError(t, os.WriteFile(filepath.Join(dir, local.ProcessedFile), []byte(content), 0o600))

		store, err := local.New(local.Config{Dir: dir})
		require.NoError(t, err)
		assert.Equal(t, 2, store.ProcessedCount())
		assert.True(t, store.HasBeenRecorded(long))
		assert.True(t, store.HasBeenRecorded("https://b.test"))
	})
}

func TestSaveWritesEachCategory(t *testing.T) {
	dir := t.TempDir()
	store, err := local.New(local.Config{Dir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	wrote, err := store.Save(ctx, "https://ok.test", checker.Success(200, "Hello World"))
	require.NoError(t, err)
	assert.True(t, wrote)
	wrote, err = store.Save(ctx, "https://missing.test", checker.HTTPError(404))
	require.NoError(t, err)
	assert.True(t, wrote)
	wrote, err = store.Save(ctx, "https://down.test", checker.TransportError("dial tcp: connection refused"))
	require.NoError(t, err)
	assert.True(t, wrote)

	assert.Equal(t, []string{"https://ok.test,Hello World"}, readLines(t, dir, local.UsefulFile))
	assert.Equal(t, []string{
		"https://missing.test, Status: 404",
		"https://down.test, Error: dial tcp: connection refused",
	}, readLines(t, dir, local.DiscardedFile))
	assert.Equal(t, []string{"https://ok.test", "https://missing.test", "https://down.test"},
		readLines(t, dir, local.ProcessedFile))
	assert.True(t, store.HasBeenRecorded("https://ok.test"))
	assert.Equal(t, 3, store.ProcessedCount())
}

func TestSaveSkipsDuplicateContentButCheckpoints(t *testing.T) {
	dir := t.TempDir()
	store, err := local.New(local.Config{Dir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	wrote, err := store.Save(ctx, "https://dup.test", checker.Success(200, "first"))
	require.NoError(t, err)
	assert.True(t, wrote)
	wrote, err = store.Save(ctx, "https://dup.test", checker.HTTPError(500))
	require.NoError(t, err)
	assert.False(t, wrote)

	assert.Equal(t, []string{"https://dup.test,first"}, readLines(t, dir, local.UsefulFile))
	assert.Nil(t, readLines(t, dir, local.DiscardedFile))
	assert.Equal(t, []string{"https://dup.test", "https://dup.test"}, readLines(t, dir, local.ProcessedFile))
}

func TestSaveCanceledContextWritesNothing(t *testing.T) {
	dir := t.TempDir()
	store, err := local.New(local.Config{Dir: dir})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Save(ctx, "https://a.test", checker.Success(200, "x"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, readLines(t, dir, local.ProcessedFile))
}

func TestSaveConcurrentDuplicatesWriteOnce(t *testing.T) {
	dir := t.TempDir()
	store, err := local.New(local.Config{Dir: dir})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		for j := 0; j < 5; j++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				url := fmt.Sprintf("https://site%d.test", i)
				_, err := store.Save(context.Background(), url, checker.Success(200, "t"))
				assert.NoError(t, err)
			}(i)
		}
	}
	wg.Wait()

	useful := readLines(t, dir, local.UsefulFile)
	assert.Len(t, useful, 20)
	seen := make(map[string]bool)
	for _, line := range useful {
		assert.False(t, seen[line], "duplicate line %q", line)
		seen[line] = true
		assert.True(t, strings.HasSuffix(line, ",t"), "partial line %q", line)
	}
	assert.Len(t, readLines(t, dir, local.ProcessedFile), 100)
	assert.Equal(t, 20, store.ProcessedCount())
}

func TestSaveAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	first, err := local.New(local.Config{Dir: dir})
	require.NoError(t, err)
	_, err = first.Save(context.Background(), "https://a.test", checker.Success(200, "A"))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := local.New(local.Config{Dir: dir})
	require.NoError(t, err)
	assert.True(t, second.HasBeenRecorded("https://a.test"))
	_, err = second.Save(context.Background(), "https://b.test", checker.Success(200, "B"))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.test,A", "https://b.test,B"}, readLines(t, dir, local.UsefulFile))
}
