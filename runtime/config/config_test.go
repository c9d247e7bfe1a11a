package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, ".acd", "settings.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestMissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadFile(t *testing.T) {
	path := writeSettings(t, "retries: 5\nauto: true\nformat: yaml\nvocabulary: vocab/custom.yaml\n")
	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, s.Retries)
	assert.True(t, s.Auto)
	assert.False(t, s.Options)
	assert.Equal(t, FormatYAML, s.Format)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "vocab", "custom.yaml"), s.Vocabulary)
}

func TestVocabularyRelativeToSettingsFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "etc", "acd")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "acd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vocabulary: custom.yaml\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.yaml"), s.Vocabulary)

	abs := filepath.Join(t.TempDir(), "elsewhere.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vocabulary: "+abs+"\n"), 0o644))
	s, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, abs, s.Vocabulary)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeSettings(t, "retries: 5\nauto: true\n")
	t.Setenv("ACD_AUTO", "no")
	t.Setenv("ACD_OPTIONS", "Y")
	t.Setenv("ACD_RETRIES", "2")

	s, err := Load(path)
	require.NoError(t, err)
	assert.False(t, s.Auto)
	assert.True(t, s.Options)
	assert.Equal(t, 2, s.Retries)
}

func TestInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		msg  string
	}{
		{"bad yaml", "retries: [", nil, "unmarshal"},
		{"zero retries", "retries: 0", nil, "retries must be at least 1"},
		{"unknown format", "format: xml", nil, `unknown format "xml"`},
		{"bad bool env", "", map[string]string{"ACD_AUTO": "sometimes"}, "ACD_AUTO"},
		{"bad retries env", "", map[string]string{"ACD_RETRIES": "many"}, "ACD_RETRIES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeSettings(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
