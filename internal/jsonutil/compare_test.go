package jsonutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareEqual(t *testing.T) {
	expected := map[string]any{"id": 1, "tags": []string{"a", "b"}}
	actual := map[string]any{"id": 1.0, "tags": []any{"a", "b"}, "extra": true}

	diffs, err := Compare(expected, actual)
	require.NoError(t, err)
	assert.Empty(t, diffs)
}

func TestCompareReportsPaths(t *testing.T) {
	expected := map[string]any{
		"user":  map[string]any{"name": "ada", "email": "ada@example.com"},
		"roles": []any{"admin", "dev"},
		"count": 2,
	}
	actual := map[string]any{
		"user":  map[string]any{"name": "grace"},
		"roles": []any{"admin"},
		"count": "2",
	}

	diffs, err := Compare(expected, actual)
	require.NoError(t, err)
	require.Len(t, diffs, 4)

	assert.Equal(t, "count", diffs[0].Path)
	assert.Equal(t, "roles[1]", diffs[1].Path)
	assert.True(t, diffs[1].Missing)
	assert.Equal(t, Difference{Path: "user.email", Expected: "ada@example.com", Missing: true}, diffs[2])
	assert.Equal(t, "user.name", diffs[3].Path)
	assert.Equal(t, "user.name: expected ada, got grace", diffs[3].String())
}

func TestCompareRootTypeMismatch(t *testing.T) {
	diffs, err := Compare(map[string]any{"a": 1}, []any{1})
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, "$", diffs[0].Path)
}

func TestCompareStruct(t *testing.T) {
	type post struct {
		Title  string `json:"title"`
		UserID int    `json:"userId"`
	}
	diffs, err := Compare(map[string]any{"title": "hello", "userId": 1}, post{Title: "hello", UserID: 1})
	require.NoError(t, err)
	assert.Empty(t, diffs)
}

func TestCompareFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expected.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"status": "ok"}`), 0644))

	diffs, err := CompareFile(path, map[string]string{"status": "down"})
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, "ok", diffs[0].Expected)

	_, err = CompareFile(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}

func TestReadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))
	_, err := ReadFile(path)
	assert.Error(t, err)
}
