package tracker

import (
	"os"
	"path/filepath"
	"testing"

	"toughturtle/app/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog_HasDistanceChallenge(t *testing.T) {
	entries := DefaultCatalog()
	require.NotEmpty(t, entries)

	names := map[string]CatalogEntry{}
	for _, e := range entries {
		names[e.Name] = e
	}
	distance, ok := names[DistanceChallenge]
	require.True(t, ok)
	assert.Equal(t, "cardio", distance.Category)
	assert.Equal(t, "km", distance.Unit)
}

func TestParseCatalog_Rejects(t *testing.T) {
	_, err := ParseCatalog([]byte("challenges: [this is: not"))
	require.Error(t, err)

	_, err = ParseCatalog([]byte(`
challenges:
  - {name: Nap, category: napping, target: 1, unit: naps}
`))
	require.ErrorIs(t, err, utils.ErrValidation)

	_, err = ParseCatalog([]byte(`
challenges:
  - {name: Twice, category: sleep, target: 8, unit: hours}
  - {name: Twice, category: sleep, target: 7, unit: hours}
`))
	require.ErrorContains(t, err, "duplicate")
}

func TestLoadCatalog_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
challenges:
  - name: Puddle Paddle
    category: cardio
    target: 2.5
    unit: km
`), 0o600))

	entries, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, CatalogEntry{Name: "Puddle Paddle", Category: "cardio", Target: 2.5, Unit: "km"}, entries[0])

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	defaults, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog(), defaults)
}
