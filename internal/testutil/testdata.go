package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// LoadJSON reads and unmarshals testdata/<filename> into target.
func LoadJSON(filename string, target any) error {
	_, currentFile, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(currentFile), "testdata")

	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// Rows loads a fixture holding a JSON array of objects, as PostgREST returns
// from a select.
func Rows(t testing.TB, filename string) []map[string]any {
	t.Helper()
	var rows []map[string]any
	require.NoError(t, LoadJSON(filename, &rows))
	return rows
}
