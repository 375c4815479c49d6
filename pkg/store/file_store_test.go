package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKVMissingFile(t *testing.T) {
	kv := NewFileKV(filepath.Join(t.TempDir(), "state.json"))

	_, ok, err := kv.Get("some-key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileKVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	kv := NewFileKV(path)

	require.NoError(t, kv.Set("key", "value"))

	v, ok, err := kv.Get("key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value", v)

	// A fresh handle over the same file sees the same data.
	v, ok, err = NewFileKV(path).Get("key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestFileKVOverwrite(t *testing.T) {
	kv := NewFileKV(filepath.Join(t.TempDir(), "state.json"))

	require.NoError(t, kv.Set("key", "first"))
	require.NoError(t, kv.Set("key", "second"))

	v, ok, err := kv.Get("key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestFileKVCorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	kv := NewFileKV(path)
	_, ok, err := kv.Get("key")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("key", "value"))
	v, ok, err := kv.Get("key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestInMemoryKV(t *testing.T) {
	kv := NewInMemoryKV()

	_, ok, err := kv.Get("key")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("key", "value"))
	v, ok, err := kv.Get("key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value", v)
}
