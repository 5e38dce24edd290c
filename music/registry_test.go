package music

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/technoflow/types"
)

func TestNewDefaultRegistry(t *testing.T) {
	reg := NewDefaultRegistry(DefaultProvidersConfig(), zap.NewNop())

	names := make([]string, 0)
	for _, info := range reg.List() {
		names = append(names, info.Name)
	}
	// generic is skipped without endpoints
	assert.Equal(t, []string{"demo", "replicate", "suno", "udio"}, names)

	info, ok := reg.Info(" UDIO ")
	require.True(t, ok)
	assert.True(t, info.RequiresAuth)
}

func TestNewDefaultRegistry_Generic(t *testing.T) {
	cfg := ProvidersConfig{Generic: GenericConfig{Enabled: true, SubmitURL: "http://x/s", StatusURL: "http://x/q"}}
	reg := NewDefaultRegistry(cfg, zap.NewNop())

	p, err := reg.Resolve("generic", "")
	require.NoError(t, err)
	assert.Equal(t, "generic", p.Name())
}

func TestRegistry_ValidateCredential(t *testing.T) {
	reg := NewDefaultRegistry(DefaultProvidersConfig(), zap.NewNop())

	tests := []struct {
		name       string
		service    string
		credential string
		wantErr    bool
	}{
		{"valid udio token", "udio", "0123456789abcdef", false},
		{"missing token", "suno", "", true},
		{"whitespace token", "suno", "     ", true},
		{"short token", "replicate", "abc", true},
		{"demo needs nothing", "demo", "", false},
		{"unknown service", "muzic", "0123456789abcdef", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.ValidateCredential(tt.service, tt.credential)
			if tt.wantErr {
				require.Error(t, err)
				apiErr, ok := types.AsError(err)
				require.True(t, ok)
				assert.Equal(t, types.ErrInvalidRequest, apiErr.Code)
				assert.Equal(t, 400, apiErr.HTTPStatus)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegistry_ResolveEachProvider(t *testing.T) {
	reg := NewDefaultRegistry(DefaultProvidersConfig(), zap.NewNop())

	for _, name := range []string{"udio", "suno", "replicate"} {
		p, err := reg.Resolve(name, testToken)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}

	a, err := reg.Resolve("demo", "")
	require.NoError(t, err)
	b, err := reg.Resolve("demo", "")
	require.NoError(t, err)
	assert.Same(t, a, b)
}
