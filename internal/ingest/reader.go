package ingest

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// DetectFormat resolves the input format from an explicit declaration or the
// file extension (gzip suffix transparent).
func DetectFormat(path, declared string) (Format, error) {
	if declared != "" {
		switch Format(strings.ToLower(declared)) {
		case FormatCSV, FormatGeoJSON, FormatNDJSON, FormatShapefile:
			return Format(strings.ToLower(declared)), nil
		default:
			return "", eris.Errorf("ingest: unknown format %q", declared)
		}
	}

	name := strings.ToLower(strings.TrimSuffix(filepath.Base(path), ".gz"))
	switch filepath.Ext(name) {
	case ".csv":
		return FormatCSV, nil
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".ndjson", ".jsonl":
		return FormatNDJSON, nil
	case ".shp":
		return FormatShapefile, nil
	default:
		return "", eris.Errorf("ingest: cannot detect format of %q; declare one with --format", path)
	}
}

// Stream opens the file and streams raw records for the given format. The
// returned error channel carries at most one error and both channels close
// when reading completes.
func Stream(ctx context.Context, path string, format Format) (<-chan RawRecord, <-chan error) {
	switch format {
	case FormatCSV:
		return StreamCSV(ctx, path)
	case FormatNDJSON:
		return StreamNDJSON(ctx, path)
	case FormatShapefile:
		return StreamShapefile(ctx, path)
	default:
		return StreamGeoJSON(ctx, path)
	}
}

// openMaybeGzip opens a source file, wrapping .gz transparently.
func openMaybeGzip(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}

	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return f, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, eris.Wrapf(err, "ingest: gzip %s", path)
	}

	return &gzipReadCloser{gz: gz, file: f}, nil
}

type gzipReadCloser struct {
	gz   *gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	fErr := g.file.Close()
	if gzErr != nil {
		return gzErr
	}
	return fErr
}
