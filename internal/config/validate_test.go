package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"all keys", "mirror: https://mirror.example.com\non_failure: retry\nupdate_command: ./update.sh\nlog_level: warn\n"},
		{"policy only", "on_failure: continue\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Validate([]byte(tt.yaml))
			require.NoError(t, err)
			assert.True(t, result.Valid, "issues: %v", result.Issues)
			assert.NoError(t, result.Err())
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		keyword string
	}{
		{"unknown key", "interval: 60\n", "additionalProperties"},
		{"bad policy", "on_failure: ignore\n", "enum"},
		{"bad level", "log_level: loud\n", "enum"},
		{"bad mirror", "mirror: mirror.example.com\n", "pattern"},
		{"empty command", "update_command: \"\"\n", "minLength"},
		{"wrong type", "on_failure: 3\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Validate([]byte(tt.yaml))
			require.NoError(t, err)
			require.False(t, result.Valid)
			require.NotEmpty(t, result.Issues)
			if tt.keyword != "" {
				assert.Equal(t, tt.keyword, result.Issues[0].Keyword)
			}
			assert.Error(t, result.Err())
		})
	}
}

func TestValidate_IssuePath(t *testing.T) {
	result, err := Validate([]byte("on_failure: ignore\n"))
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "/on_failure", result.Issues[0].Path)
	assert.Contains(t, result.Err().Error(), "/on_failure")
}

func TestValidate_InvalidYAML(t *testing.T) {
	_, err := Validate([]byte("mirror: [oops\n"))
	assert.Error(t, err)
}

func TestValidateFile(t *testing.T) {
	tmp := t.TempDir()

	result, err := ValidateFile(filepath.Join(tmp, "missing.yaml"))
	require.NoError(t, err)
	assert.True(t, result.Valid)

	path := filepath.Join(tmp, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("on_failure: sometimes\n"), 0644))
	result, err = ValidateFile(path)
	require.NoError(t, err)
	assert.False(t, result.Valid)
}
