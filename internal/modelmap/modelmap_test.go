package modelmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	mapper := NewMapperFromTable(map[string]map[string]string{
		"gcp": {
			"default":        "publishers/google/models/gemini-2.0-flash-001",
			"claude-3-haiku": "publishers/anthropic/models/claude-3-haiku@20240307",
		},
	})

	assert.Equal(t, "publishers/anthropic/models/claude-3-haiku@20240307", mapper.Lookup("gcp", "claude-3-haiku"))
	assert.Equal(t, "publishers/google/models/gemini-2.0-flash-001", mapper.Lookup("gcp", "default"))
}

func TestLookup_IdentityFallback(t *testing.T) {
	mapper := NewMapperFromTable(map[string]map[string]string{
		"gcp": {
			"claude-3-haiku": "publishers/anthropic/models/claude-3-haiku@20240307",
		},
	})

	assert.Equal(t, "unknown-model", mapper.Lookup("gcp", "unknown-model"))
	assert.Equal(t, "claude-3-haiku", mapper.Lookup("aws", "claude-3-haiku"))
	assert.Equal(t, "unknown-model", Identity().Lookup("gcp", "unknown-model"))
}

func TestLookup_Normalization(t *testing.T) {
	mapper := NewMapperFromTable(map[string]map[string]string{
		"gcp": {
			"claude-3-haiku": "publishers/anthropic/models/claude-3-haiku@20240307",
		},
	})

	assert.Equal(t, mapper.Lookup("gcp", "claude-3-haiku"), mapper.Lookup("gcp", "Claude-3-Haiku:latest"))
	assert.Equal(t, mapper.Lookup("gcp", "foo"), mapper.Lookup("gcp", "Foo:latest"))
	assert.Equal(t, "foo", mapper.Lookup("gcp", "FOO"))
}

func TestNewMapper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelmap.json")
	contents := `{
		"gcp": {
			"Gemini-2.0-Flash": "publishers/google/models/gemini-2.0-flash-001"
		},
		"aws": {
			"gpt-4": "anthropic.claude-3-sonnet-20240229-v1:0"
		}
	}`

	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	mapper, err := NewMapper(path)
	require.NoError(t, err)

	assert.Equal(t, "publishers/google/models/gemini-2.0-flash-001", mapper.Lookup("gcp", "gemini-2.0-flash"))
	assert.Equal(t, "anthropic.claude-3-sonnet-20240229-v1:0", mapper.Lookup("aws", "gpt-4"))
}

func TestNewMapper_MissingFile(t *testing.T) {
	_, err := NewMapper(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}
