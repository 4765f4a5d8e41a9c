package world

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallWorld = `
xdim: 3
ydim: 2
communities:
  - {x: 0, y: 0, terrain: agriculture, elevation: 250, activeFrom: agri1}
  - {x: 1, y: 0, terrain: steppe, elevation: 1000, activeFrom: agri2}
  - {x: 2, y: 0, terrain: sea}
  - {x: 0, y: 1, terrain: desert}
  - {x: 1, y: 1, terrain: agriculture, elevation: 0, activeFrom: agri3}
`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(smallWorld), "small.yaml")
	require.NoError(t, err)

	assert.Equal(t, 3, def.Width)
	assert.Equal(t, 2, def.Height)
	require.Len(t, def.Cells, 6)

	c := def.Get(Coord{X: 0, Y: 0})
	require.NotNil(t, c)
	assert.Equal(t, TerrainAgriculture, c.Terrain)
	assert.InDelta(t, 0.25, c.Elevation, 1e-9)
	assert.Equal(t, PeriodAgri1, c.Period)

	assert.Equal(t, TerrainSteppe, def.Get(Coord{X: 1, Y: 0}).Terrain)
	assert.Equal(t, PeriodAgri2, def.Get(Coord{X: 1, Y: 0}).Period)
	assert.Equal(t, TerrainDesert, def.Get(Coord{X: 0, Y: 1}).Terrain)
	assert.Equal(t, PeriodAgri3, def.Get(Coord{X: 1, Y: 1}).Period)

	// Unlisted cells default to sea.
	assert.Equal(t, TerrainSea, def.Get(Coord{X: 2, Y: 1}).Terrain)
	assert.Nil(t, def.Get(Coord{X: 3, Y: 0}))
}

func TestParseMissingKeys(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		key  string
	}{
		{"xdim", "ydim: 1\ncommunities: []\n", "xdim"},
		{"ydim", "xdim: 1\ncommunities: []\n", "ydim"},
		{"communities", "xdim: 1\nydim: 1\n", "communities"},
		{
			"elevation",
			"xdim: 1\nydim: 1\ncommunities:\n  - {x: 0, y: 0, terrain: agriculture, activeFrom: agri1}\n",
			"communities[0].elevation",
		},
		{
			"activeFrom",
			"xdim: 1\nydim: 1\ncommunities:\n  - {x: 0, y: 0, terrain: steppe, elevation: 10}\n",
			"communities[0].activeFrom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "bad.yaml")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingKey))

			var mk *MissingKeyError
			require.ErrorAs(t, err, &mk)
			assert.Equal(t, tt.key, mk.Key)
			assert.Equal(t, "bad.yaml", mk.File)
			assert.Contains(t, err.Error(), tt.key)
			assert.Contains(t, err.Error(), "bad.yaml")
		})
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	docs := map[string]string{
		"unknown terrain": "xdim: 1\nydim: 1\ncommunities:\n  - {x: 0, y: 0, terrain: tundra}\n",
		"unknown period":  "xdim: 1\nydim: 1\ncommunities:\n  - {x: 0, y: 0, terrain: agriculture, elevation: 0, activeFrom: agri9}\n",
		"out of bounds":   "xdim: 1\nydim: 1\ncommunities:\n  - {x: 4, y: 0, terrain: sea}\n",
		"zero width":      "xdim: 0\nydim: 1\ncommunities: []\n",
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), "bad.yaml")
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrMissingKey))
		})
	}
}

func TestSaveLoad(t *testing.T) {
	def, err := Parse([]byte(smallWorld), "small.yaml")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "worlds", "small.yaml")
	require.NoError(t, def.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, def, loaded)
}

func TestPeriodActivation(t *testing.T) {
	assert.True(t, PeriodAgri1.IsActive(0))
	assert.False(t, PeriodAgri2.IsActive(0))
	assert.False(t, PeriodAgri2.IsActive(399))
	assert.True(t, PeriodAgri2.IsActive(400))
	assert.False(t, PeriodAgri3.IsActive(749))
	assert.True(t, PeriodAgri3.IsActive(750))
	assert.Equal(t, -1500, Year(0))
	assert.Equal(t, -1480, Year(10))
}

func TestTerrainFlags(t *testing.T) {
	assert.True(t, TerrainAgriculture.PolityForming())
	assert.True(t, TerrainSteppe.PolityForming())
	assert.False(t, TerrainDesert.PolityForming())
	assert.False(t, TerrainSea.PolityForming())

	for _, tag := range []string{"agriculture", "steppe", "desert", "sea"} {
		tr, err := ParseTerrain(tag)
		require.NoError(t, err)
		assert.Equal(t, tag, tr.String())
	}
	_, err := ParseTerrain("swamp")
	assert.Error(t, err)
}

func TestGridGeometry(t *testing.T) {
	c := Coord{X: 2, Y: 3}
	n := c.Neighbors()
	assert.Equal(t, Coord{X: 1, Y: 3}, n[Left])
	assert.Equal(t, Coord{X: 3, Y: 3}, n[Right])
	assert.Equal(t, Coord{X: 2, Y: 4}, n[Up])
	assert.Equal(t, Coord{X: 2, Y: 2}, n[Down])

	assert.InDelta(t, 5.0, Distance(Coord{X: 0, Y: 0}, Coord{X: 3, Y: 4}), 1e-12)
	assert.Equal(t, 7, Index(Coord{X: 1, Y: 2}, 3))
	assert.False(t, InBounds(Coord{X: -1, Y: 0}, 3, 3))
}
