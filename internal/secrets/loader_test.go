package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("  from-file\n"), 0o600))
	t.Setenv("APPLY_QUEUE_TEST_KEY", "from-env")

	got, err := Load(Source{Name: "api key", File: keyFile, Env: "APPLY_QUEUE_TEST_KEY", Value: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = Load(Source{Env: "APPLY_QUEUE_TEST_KEY", Value: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	got, err = Load(Source{Env: "APPLY_QUEUE_UNSET_KEY", Value: " inline "})
	require.NoError(t, err)
	assert.Equal(t, "inline", got)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))

	_, err := Load(Source{Name: "api key", File: empty})
	assert.ErrorContains(t, err, "is empty")

	_, err = Load(Source{Name: "api key", File: filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "reading api key")

	_, err = Load(Source{Name: "api key"})
	assert.EqualError(t, err, "api key is not configured")
}
