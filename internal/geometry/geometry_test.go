package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

func TestToGeoJSON_Point(t *testing.T) {
	g := geom.NewPointFlat(geom.XY, []float64{-73.97, 40.78})
	gj := ToGeoJSON(g)

	require.NotNil(t, gj)
	assert.Equal(t, "Point", gj.Type)
	assert.Equal(t, []float64{-73.97, 40.78}, gj.Coordinates)
}

func TestToGeoJSON_Polygon(t *testing.T) {
	g, err := FromWKT("POLYGON ((0 0, 0 1, 1 1, 0 0))", 4326)
	require.NoError(t, err)

	gj := ToGeoJSON(g)
	require.NotNil(t, gj)
	assert.Equal(t, "Polygon", gj.Type)

	rings, ok := gj.Coordinates.([][][]float64)
	require.True(t, ok)
	require.Len(t, rings, 1)
	assert.Equal(t, []float64{0, 0}, rings[0][0])
	assert.Equal(t, []float64{0, 0}, rings[0][3])
}

func TestToGeoJSON_Empty(t *testing.T) {
	assert.Nil(t, ToGeoJSON(nil))

	g, err := FromWKT("MULTIPOLYGON EMPTY", 4326)
	require.NoError(t, err)
	assert.Nil(t, ToGeoJSON(g))
}

// Decode then re-encode must preserve coordinate values and ring structure.
func TestWKT_RoundTrip(t *testing.T) {
	literals := []string{
		"POINT (987654.3 210345.1)",
		"POLYGON ((0 0, 0 10, 10 10, 10 0, 0 0))",
		"POLYGON ((0 0, 0 10, 10 10, 10 0, 0 0), (2 2, 2 4, 4 4, 2 2))",
		"MULTIPOLYGON (((0 0, 0 1, 1 1, 0 0)), ((5 5, 5 6, 6 6, 5 5)))",
	}

	for _, lit := range literals {
		g1, err := FromWKT(lit, 4326)
		require.NoError(t, err, lit)

		encoded, err := wkt.Marshal(g1)
		require.NoError(t, err, lit)

		g2, err := FromWKT(encoded, 4326)
		require.NoError(t, err, lit)

		assert.Equal(t, g1.FlatCoords(), g2.FlatCoords(), lit)
		assert.Equal(t, g1.Ends(), g2.Ends(), lit)
	}
}
