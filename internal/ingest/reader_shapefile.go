package ingest

import (
	"context"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geoingest/internal/normalize"
)

// StreamShapefile reads a shapefile and streams one RawRecord per shape, with
// DBF attributes coerced the same way as CSV cells. DBF strings are
// NUL-padded; padding is stripped before coercion.
func StreamShapefile(ctx context.Context, path string) (<-chan RawRecord, <-chan error) {
	rowCh := make(chan RawRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader, err := shp.Open(path)
		if err != nil {
			errCh <- eris.Wrapf(err, "ingest: open shapefile %s", path)
			return
		}
		defer func() { _ = reader.Close() }()

		dbfFields := reader.Fields()
		names := make([]string, len(dbfFields))
		for i, f := range dbfFields {
			names[i] = strings.TrimRight(f.String(), "\x00")
		}

		num := 0
		for reader.Next() {
			if ctx.Err() != nil {
				return
			}

			_, shape := reader.Shape()
			num++

			fields := make([]normalize.Field, 0, len(names))
			for i, name := range names {
				raw := strings.TrimRight(reader.Attribute(i), "\x00")
				fields = append(fields, normalize.Field{Name: name, Value: normalize.Coerce(raw)})
			}

			select {
			case rowCh <- RawRecord{Num: num, Fields: fields, Shape: shape}:
			case <-ctx.Done():
				return
			}
		}

		if err := reader.Err(); err != nil {
			errCh <- eris.Wrapf(err, "ingest: read shapefile %s", path)
		}
	}()

	return rowCh, errCh
}
