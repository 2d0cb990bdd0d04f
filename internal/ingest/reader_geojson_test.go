package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const featureCollection = `{
  "type": "FeatureCollection",
  "name": "flood_zones",
  "features": [
    {"type": "Feature", "id": 101,
     "geometry": {"type": "Point", "coordinates": [-73.97, 40.78]},
     "properties": {"Zone": "AE", "BFE": 11}},
    {"type": "Feature",
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]},
     "properties": {"Zone": "X"}},
    {"type": "Feature",
     "geometry": null,
     "properties": {"Zone": "unmapped"}}
  ]
}`

func TestStreamGeoJSONFeatureCollection(t *testing.T) {
	path := writeFixture(t, "zones.geojson", featureCollection)

	rowCh, errCh := StreamGeoJSON(context.Background(), path)
	recs, err := drain(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	// Properties flatten in sorted key order; id lands last.
	require.Len(t, recs[0].Fields, 3)
	assert.Equal(t, "BFE", recs[0].Fields[0].Name)
	assert.Equal(t, "Zone", recs[0].Fields[1].Name)
	assert.Equal(t, "_feature_id", recs[0].Fields[2].Name)
	assert.JSONEq(t, `{"type":"Point","coordinates":[-73.97,40.78]}`, string(recs[0].Geometry))

	assert.Equal(t, 2, recs[1].Num)
	assert.JSONEq(t, `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`, string(recs[1].Geometry))

	assert.Equal(t, "null", string(recs[2].Geometry))
}

func TestStreamGeoJSONBareFeature(t *testing.T) {
	path := writeFixture(t, "one.json", `{
  "properties": {"Name": "City Hall"},
  "geometry": {"type": "Point", "coordinates": [-74.006, 40.713]},
  "type": "Feature"
}`)

	rowCh, errCh := StreamGeoJSON(context.Background(), path)
	recs, err := drain(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Name", recs[0].Fields[0].Name)
	assert.JSONEq(t, `{"type":"Point","coordinates":[-74.006,40.713]}`, string(recs[0].Geometry))
}

func TestStreamGeoJSONBareArray(t *testing.T) {
	path := writeFixture(t, "list.json", `[
  {"type": "Feature", "geometry": {"type": "Point", "coordinates": [1, 2]}, "properties": {"n": 1}},
  {"type": "Feature", "geometry": {"type": "Point", "coordinates": [3, 4]}, "properties": {"n": 2}}
]`)

	rowCh, errCh := StreamGeoJSON(context.Background(), path)
	recs, err := drain(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[1].Num)
}

func TestStreamGeoJSONNotGeoJSON(t *testing.T) {
	path := writeFixture(t, "bad.json", `{"type": "Topology"}`)

	rowCh, errCh := StreamGeoJSON(context.Background(), path)
	recs, err := drain(t, rowCh, errCh)
	assert.Error(t, err)
	assert.Empty(t, recs)
}

func TestStreamNDJSON(t *testing.T) {
	path := writeFixture(t, "rows.ndjson", `{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{"n":1}}

{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[3,4]},"properties":{"n":2}},{"type":"Feature","geometry":{"type":"Point","coordinates":[5,6]},"properties":{"n":3}}]}
`)

	rowCh, errCh := StreamNDJSON(context.Background(), path)
	recs, err := drain(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 3, recs[2].Num)
	assert.JSONEq(t, `{"type":"Point","coordinates":[5,6]}`, string(recs[2].Geometry))
}

func TestStreamNDJSONBadLine(t *testing.T) {
	path := writeFixture(t, "bad.ndjson", `{"type":"Feature","geometry":null,"properties":{}}
not json
`)

	rowCh, errCh := StreamNDJSON(context.Background(), path)
	_, err := drain(t, rowCh, errCh)
	assert.Error(t, err)
}

func TestStreamNDJSONNonFeature(t *testing.T) {
	path := writeFixture(t, "wrong.ndjson", `{"type":"Point","coordinates":[1,2]}`)

	rowCh, errCh := StreamNDJSON(context.Background(), path)
	_, err := drain(t, rowCh, errCh)
	assert.Error(t, err)
}
