package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestAssemble_WithGeometry(t *testing.T) {
	attrs := map[string]any{"parcel_id": int64(7), "flood_zone": "AE"}
	g := geom.NewPointFlat(geom.XY, []float64{-74.006, 40.7128}).SetSRID(4326)
	meta := Source{Dataset: "parcels", File: "parcels.csv", Format: "csv", RunID: "run-1", IngestedAt: time.Now().UTC()}

	doc := Assemble(attrs, g, []string{"parcel_id"}, meta)

	require.NotNil(t, doc.Geometry)
	assert.Equal(t, "Point", doc.Geometry.Type)
	assert.Equal(t, attrs, doc.Attributes)
	assert.Equal(t, meta, doc.Source)
	assert.NotEmpty(t, doc.Key)
}

func TestAssemble_NoFootprint(t *testing.T) {
	doc := Assemble(map[string]any{"a": 1}, nil, nil, Source{})
	assert.Nil(t, doc.Geometry)
	assert.NotEmpty(t, doc.Key)
}

func TestNaturalKey_DeclaredFields(t *testing.T) {
	a := map[string]any{"parcel_id": int64(7), "note": "x"}
	b := map[string]any{"parcel_id": int64(7), "note": "changed"}

	// Same declared key, different non-key attributes: same key (update).
	assert.Equal(t, NaturalKey(a, []string{"parcel_id"}), NaturalKey(b, []string{"parcel_id"}))

	c := map[string]any{"parcel_id": int64(8), "note": "x"}
	assert.NotEqual(t, NaturalKey(a, []string{"parcel_id"}), NaturalKey(c, []string{"parcel_id"}))
}

func TestNaturalKey_ContentHashOrderIndependent(t *testing.T) {
	a := map[string]any{"x": 1, "y": 2, "z": "three"}
	b := map[string]any{"z": "three", "y": 2, "x": 1}

	assert.Equal(t, NaturalKey(a, nil), NaturalKey(b, nil))
}

func TestNaturalKey_ContentHashChangesWithAnyAttribute(t *testing.T) {
	a := map[string]any{"x": 1, "y": 2}
	b := map[string]any{"x": 1, "y": 3}

	assert.NotEqual(t, NaturalKey(a, nil), NaturalKey(b, nil))
}
