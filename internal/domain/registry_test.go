package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	testCases := []struct {
		name        string
		targets     []Target
		expectedErr string
	}{
		{
			name:    "happy path - unique names keep their order",
			targets: []Target{{Name: "b", URL: "http://b"}, {Name: "a", URL: "http://a"}},
		},
		{
			name:    "empty url is accepted",
			targets: []Target{{Name: "a"}},
		},
		{
			name:        "error case - no targets",
			targets:     nil,
			expectedErr: "at least one target",
		},
		{
			name:        "error case - missing name",
			targets:     []Target{{URL: "http://a"}},
			expectedErr: "name is required",
		},
		{
			name:        "error case - duplicate name",
			targets:     []Target{{Name: "a", URL: "http://1"}, {Name: "a", URL: "http://2"}},
			expectedErr: `duplicate name "a"`,
		},
		{
			name:        "error case - unknown auth mode",
			targets:     []Target{{Name: "a", Auth: TargetAuth{Mode: "kerberos"}}},
			expectedErr: "unknown auth mode",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reg, err := NewRegistry(tc.targets)
			if tc.expectedErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErr)
				assert.Nil(t, reg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.targets, reg.Targets())
			assert.Equal(t, len(tc.targets), reg.Len())
		})
	}
}

func TestRegistry_IsImmutable(t *testing.T) {
	targets := []Target{{Name: "a", URL: "http://a"}}
	reg, err := NewRegistry(targets)
	require.NoError(t, err)

	targets[0].Name = "changed"
	got := reg.Targets()
	got[0].URL = "http://changed"

	assert.Equal(t, []string{"a"}, reg.Names())
	assert.Equal(t, "http://a", reg.Targets()[0].URL)
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")
	content := `targets:
  - name: facebook
    url: https://takehome.io/facebook
  - name: private
    url: https://api.example.com/events
    auth:
      mode: bearer
      token_env: PRIVATE_TOKEN
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"facebook", "private"}, reg.Names())
	assert.Equal(t, AuthBearer, reg.Targets()[1].Auth.Mode)

	t.Setenv("PRIVATE_TOKEN", "s3cret")
	assert.Equal(t, "s3cret", reg.Targets()[1].Auth.Token())
}

func TestLoadRegistry_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadRegistry(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("targets: [unclosed"), 0o600))
	_, err = LoadRegistry(bad)
	assert.ErrorContains(t, err, "parse yaml")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("targets: []\n"), 0o600))
	_, err = LoadRegistry(empty)
	assert.ErrorIs(t, err, ErrEmptyRegistry)
}

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []string{"facebook", "twitter", "instagram"}, reg.Names())
}

func TestTargetAuth_HeaderName(t *testing.T) {
	assert.Equal(t, DefaultAPIKeyHeader, TargetAuth{}.HeaderName())
	assert.Equal(t, "X-Token", TargetAuth{Header: "X-Token"}.HeaderName())
	assert.Empty(t, TargetAuth{}.Key())
}
