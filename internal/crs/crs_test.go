package crs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EPSGPrefix(t *testing.T) {
	c, err := Parse("EPSG:4326")
	require.NoError(t, err)
	assert.Equal(t, 4326, c.Code)
	assert.True(t, c.IsGeographic())
}

func TestParse_BareCode(t *testing.T) {
	c, err := Parse("3857")
	require.NoError(t, err)
	assert.Equal(t, 3857, c.Code)
	assert.False(t, c.IsGeographic())
}

func TestParse_Aliases(t *testing.T) {
	for _, alias := range []string{"WGS84", "wgs84", "CRS84", "OGC:CRS84"} {
		c, err := Parse(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, 4326, c.Code, alias)
	}
}

func TestParse_CaseAndWhitespace(t *testing.T) {
	c, err := Parse("  epsg:2263 ")
	require.NoError(t, err)
	assert.Equal(t, 2263, c.Code)
	assert.Equal(t, "EPSG:2263", c.String())
}

func TestParse_UTMZones(t *testing.T) {
	c, err := Parse("EPSG:26918") // NAD83 / UTM 18N, covers New York
	require.NoError(t, err)
	assert.Equal(t, "NAD83 / UTM zone 18N", c.Name)

	c, err = Parse("EPSG:32733") // WGS 84 / UTM 33S
	require.NoError(t, err)
	assert.Equal(t, "WGS 84 / UTM zone 33S", c.Name)
}

func TestParse_Unknown(t *testing.T) {
	_, err := Parse("EPSG:999999")
	assert.ErrorIs(t, err, ErrUnknownCRS)

	_, err = Parse("not-a-crs")
	assert.ErrorIs(t, err, ErrUnknownCRS)

	_, err = Parse("EPSG:26999") // outside the NAD83 UTM zone range
	assert.ErrorIs(t, err, ErrUnknownCRS)
}
