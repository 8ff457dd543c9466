package jsonfile

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name string `json:"name"`
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.json")

	in := []record{{Name: "a"}, {Name: "b"}}
	require.NoError(t, Save(path, in))

	var out []record
	Load(path, &out)
	assert.Equal(t, in, out)
}

func TestLoadMissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		var out []record
		Load(filepath.Join(dir, "nope.json"), &out)
		assert.Empty(t, out)
	})

	t.Run("corrupt", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		require.NoError(t, ioutil.WriteFile(path, []byte("[{"), 0o644))

		var out []record
		Load(path, &out)
		assert.Empty(t, out)
	})

	t.Run("wrong element type", func(t *testing.T) {
		path := filepath.Join(dir, "mistyped.json")
		require.NoError(t, ioutil.WriteFile(path, []byte(`[{"name":"a"},{"name":5}]`), 0o644))

		var out []record
		Load(path, &out)
		assert.Empty(t, out)
	})
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.json")

	require.NoError(t, Save(path, []record{{Name: "a"}}))
	require.NoError(t, Save(path, []record{{Name: "b"}}))

	entries, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "records.json", entries[0].Name())
}
