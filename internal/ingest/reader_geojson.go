package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoingest/internal/normalize"
)

// rawFeature mirrors an RFC 7946 Feature without decoding its geometry, so
// unsupported geometry types surface as per-record diagnostics instead of
// read errors.
type rawFeature struct {
	Type       string          `json:"type"`
	ID         any             `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// StreamGeoJSON reads a GeoJSON file (.geojson/.json, optionally .gz) and
// streams one RawRecord per feature. FeatureCollections are token-streamed so
// large files never load whole; a bare Feature or an array of Features also
// works.
func StreamGeoJSON(ctx context.Context, path string) (<-chan RawRecord, <-chan error) {
	rowCh := make(chan RawRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		f, err := openMaybeGzip(path)
		if err != nil {
			errCh <- err
			return
		}
		defer func() { _ = f.Close() }()

		if err := streamGeoJSON(ctx, f, rowCh); err != nil {
			errCh <- eris.Wrapf(err, "ingest: read %s", path)
		}
	}()

	return rowCh, errCh
}

func streamGeoJSON(ctx context.Context, r io.Reader, rowCh chan<- RawRecord) error {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "geojson: read opening token")
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return eris.Errorf("geojson: expected object or array, got %v", tok)
	}

	num := 0

	// Bare array of Features.
	if delim == '[' {
		for dec.More() {
			var feat rawFeature
			if err := dec.Decode(&feat); err != nil {
				return eris.Wrap(err, "geojson: decode feature")
			}
			num++
			if done := emitFeature(ctx, rowCh, feat, num); done {
				return nil
			}
		}
		return nil
	}

	// Top-level object: FeatureCollection or a bare Feature. Keys may come in
	// any order, so capture geometry/properties in case this is a Feature.
	var (
		topType  string
		single   rawFeature
		streamed bool
	)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "geojson: read key")
		}
		key, _ := keyTok.(string)

		switch key {
		case "type":
			var s string
			if err := decodeValue(dec, &s); err != nil {
				return err
			}
			topType = s

		case "features":
			// Stream the array without materializing it.
			if tok, err := dec.Token(); err != nil {
				return eris.Wrap(err, "geojson: read features open")
			} else if d, ok := tok.(json.Delim); !ok || d != '[' {
				return eris.Errorf("geojson: features is not an array")
			}
			for dec.More() {
				var feat rawFeature
				if err := dec.Decode(&feat); err != nil {
					return eris.Wrap(err, "geojson: decode feature")
				}
				num++
				if done := emitFeature(ctx, rowCh, feat, num); done {
					return nil
				}
			}
			if _, err := dec.Token(); err != nil {
				return eris.Wrap(err, "geojson: read features close")
			}
			streamed = true

		case "geometry":
			if err := decodeValue(dec, &single.Geometry); err != nil {
				return err
			}

		case "properties":
			if err := decodeValue(dec, &single.Properties); err != nil {
				return err
			}

		case "id":
			if err := decodeValue(dec, &single.ID); err != nil {
				return err
			}

		default:
			var skip json.RawMessage
			if err := decodeValue(dec, &skip); err != nil {
				return err
			}
		}
	}

	if streamed {
		return nil
	}
	if topType == "Feature" {
		single.Type = topType
		emitFeature(ctx, rowCh, single, 1)
		return nil
	}
	return eris.Errorf("geojson: input is not a Feature, FeatureCollection, or array of Features (type %q)", topType)
}

func decodeValue(dec *json.Decoder, v any) error {
	if err := dec.Decode(v); err != nil {
		return eris.Wrap(err, "geojson: decode value")
	}
	return nil
}

// emitFeature converts a feature to a RawRecord and sends it. Reports true
// when the context was cancelled.
func emitFeature(ctx context.Context, rowCh chan<- RawRecord, feat rawFeature, num int) bool {
	rec := RawRecord{Num: num, Fields: featureFields(feat), Geometry: feat.Geometry}
	select {
	case rowCh <- rec:
		return false
	case <-ctx.Done():
		return true
	}
}

// featureFields flattens feature properties into source fields in sorted key
// order (JSON objects are unordered) and preserves the feature id.
func featureFields(feat rawFeature) []normalize.Field {
	keys := make([]string, 0, len(feat.Properties))
	for k := range feat.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]normalize.Field, 0, len(keys)+1)
	for _, k := range keys {
		fields = append(fields, normalize.Field{Name: k, Value: feat.Properties[k]})
	}
	if feat.ID != nil {
		fields = append(fields, normalize.Field{Name: "_feature_id", Value: feat.ID})
	}
	return fields
}

// StreamNDJSON reads newline-delimited GeoJSON: one Feature (or
// FeatureCollection) per line.
func StreamNDJSON(ctx context.Context, path string) (<-chan RawRecord, <-chan error) {
	rowCh := make(chan RawRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		f, err := openMaybeGzip(path)
		if err != nil {
			errCh <- err
			return
		}
		defer func() { _ = f.Close() }()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

		num := 0
		lineNo := 0
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			lineNo++

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			var probe struct {
				Type     string          `json:"type"`
				Features []rawFeature    `json:"features"`
				Raw      json.RawMessage `json:"-"`
			}
			if err := json.Unmarshal([]byte(line), &probe); err != nil {
				errCh <- eris.Wrapf(err, "ingest: ndjson line %d", lineNo)
				return
			}

			switch probe.Type {
			case "Feature":
				var feat rawFeature
				if err := json.Unmarshal([]byte(line), &feat); err != nil {
					errCh <- eris.Wrapf(err, "ingest: ndjson line %d", lineNo)
					return
				}
				num++
				if emitFeature(ctx, rowCh, feat, num) {
					return
				}
			case "FeatureCollection":
				for _, feat := range probe.Features {
					num++
					if emitFeature(ctx, rowCh, feat, num) {
						return
					}
				}
			default:
				errCh <- eris.Errorf("ingest: ndjson line %d is not a Feature or FeatureCollection", lineNo)
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errCh <- eris.Wrapf(err, "ingest: scan %s", path)
		}
	}()

	return rowCh, errCh
}
