package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandanugg/gird/module/core/domain"
)

const seedYAML = `
fences:
  - id: home
    name: Home
    latitude: 40.7128
    longitude: -74.006
    radius: 150
  - name: Gym
    latitude: 40.73
    longitude: -73.99
    radius: 80
    active: false
  - name: Broken
    latitude: 91
    longitude: 0
    radius: 10
`

func TestParseSeedFences(t *testing.T) {
	fences, err := ParseSeedFences([]byte(seedYAML))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidFence)

	require.Len(t, fences, 2)
	assert.Equal(t, "home", fences[0].ID)
	assert.True(t, fences[0].IsActive)
	assert.Equal(t, domain.StateUnknown, fences[0].LastState)
	assert.Equal(t, "Gym", fences[1].Name)
	assert.False(t, fences[1].IsActive)
}

func TestParseSeedFences_BadYAML(t *testing.T) {
	_, err := ParseSeedFences([]byte("fences: ["))
	assert.Error(t, err)
}

func TestLoadSeedFences(t *testing.T) {
	fences, err := LoadSeedFences("")
	require.NoError(t, err)
	assert.Empty(t, fences)

	path := filepath.Join(t.TempDir(), "fences.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fences:\n  - name: A\n    latitude: 1\n    longitude: 2\n    radius: 3\n"), 0o600))

	fences, err = LoadSeedFences(path)
	require.NoError(t, err)
	require.Len(t, fences, 1)
	assert.Equal(t, 3.0, fences[0].Radius)

	_, err = LoadSeedFences(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseSeedFences_NonFinite(t *testing.T) {
	raw := []byte(`
fences:
  - name: Inf
    latitude: 1
    longitude: 1
    radius: .inf
  - name: NaN
    latitude: 1
    longitude: 1
    radius: .nan
  - name: NaNLat
    latitude: .nan
    longitude: 1
    radius: 10
  - name: Ok
    latitude: 1
    longitude: 1
    radius: 10
`)

	fences, err := ParseSeedFences(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidFence)
	require.Len(t, fences, 1)
	assert.Equal(t, "Ok", fences[0].Name)
}
