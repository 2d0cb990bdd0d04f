package ingest

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoingest/internal/normalize"
)

// StreamCSV reads a headered CSV file (.csv or .csv.gz) and streams one
// RawRecord per data row, with cell values coerced to typed values. Quoted
// multiline cells (embedded WKT) are handled by the csv reader.
func StreamCSV(ctx context.Context, path string) (<-chan RawRecord, <-chan error) {
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

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1

		header, err := reader.Read()
		if err == io.EOF {
			errCh <- eris.Errorf("ingest: %s has no header row", path)
			return
		}
		if err != nil {
			errCh <- eris.Wrapf(err, "ingest: read header of %s", path)
			return
		}

		num := 0
		for {
			if ctx.Err() != nil {
				return
			}

			row, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrapf(err, "ingest: read %s row %d", path, num+1)
				return
			}

			num++
			fields := make([]normalize.Field, 0, len(header))
			for i, name := range header {
				var v any
				if i < len(row) {
					v = normalize.Coerce(row[i])
				}
				fields = append(fields, normalize.Field{Name: name, Value: v})
			}

			select {
			case rowCh <- RawRecord{Num: num, Fields: fields}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return rowCh, errCh
}
