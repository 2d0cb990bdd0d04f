package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geoingest/internal/crs"
	"github.com/sells-group/geoingest/internal/document"
	"github.com/sells-group/geoingest/internal/geometry"
	"github.com/sells-group/geoingest/internal/normalize"
	"github.com/sells-group/geoingest/internal/sink"
)

// Options configures one ingestion run.
type Options struct {
	File       string
	Format     Format // empty = detect from extension
	Dataset    string // defaults to the file basename
	Collection string

	SourceCRS string // defaults to EPSG:4326
	TargetCRS string // defaults to EPSG:4326

	LonField string // coordinate-column mode (CSV)
	LatField string
	WKTField string // WKT-column mode (CSV)

	KeyFields     []string // natural key; empty = content hash
	NormalizeKeys bool
	CreateIndex   bool
	Drop          bool
	DryRun        bool

	BatchSize      int
	Concurrency    int
	MaxDiagnostics int
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 2000
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.Dataset == "" {
		base := filepath.Base(o.File)
		o.Dataset = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if o.SourceCRS == "" {
		o.SourceCRS = "EPSG:4326"
	}
	if o.TargetCRS == "" {
		o.TargetCRS = "EPSG:4326"
	}
}

type pipeline struct {
	opts      Options
	src, tgt  crs.CRS
	keyFields []string
	meta      document.Source
	snk       sink.Sink
	col       *collector
	log       *zap.Logger
}

// Run executes decode, reproject, assemble, load over every record of the
// source file. Per-record failures are recorded and skipped; connectivity
// failures abort. A partial report is returned alongside any error, so
// callers always see what was persisted before cancellation or abort.
func Run(ctx context.Context, snk sink.Sink, opts Options) (*Report, error) {
	opts.applyDefaults()
	start := time.Now()
	col := newCollector(opts.MaxDiagnostics)

	format, err := DetectFormat(opts.File, string(opts.Format))
	if err != nil {
		return col.report(start), err
	}
	opts.Format = format

	src, err := crs.Parse(opts.SourceCRS)
	if err != nil {
		return col.report(start), eris.Wrap(err, "ingest: source CRS")
	}
	tgt, err := crs.Parse(opts.TargetCRS)
	if err != nil {
		return col.report(start), eris.Wrap(err, "ingest: target CRS")
	}

	keyFields := opts.KeyFields
	if opts.NormalizeKeys {
		keyFields = make([]string, len(opts.KeyFields))
		for i, k := range opts.KeyFields {
			keyFields[i] = normalize.Key(k)
		}
	}

	p := &pipeline{
		opts:      opts,
		src:       src,
		tgt:       tgt,
		keyFields: keyFields,
		snk:       snk,
		col:       col,
		meta: document.Source{
			Dataset:    opts.Dataset,
			File:       filepath.Base(opts.File),
			Format:     string(format),
			RunID:      uuid.NewString(),
			IngestedAt: time.Now().UTC(),
		},
		log: zap.L().With(
			zap.String("component", "ingest.pipeline"),
			zap.String("dataset", opts.Dataset),
			zap.String("collection", opts.Collection),
		),
	}

	if opts.Drop && !opts.DryRun {
		if err := snk.Drop(ctx, opts.Collection); err != nil {
			return col.report(start), eris.Wrap(err, "ingest: drop collection")
		}
		p.log.Info("dropped destination collection before load")
	}

	p.log.Info("starting ingestion",
		zap.String("file", opts.File),
		zap.String("format", string(format)),
		zap.String("source_crs", src.String()),
		zap.String("target_crs", tgt.String()),
		zap.Int("concurrency", opts.Concurrency),
		zap.Bool("dry_run", opts.DryRun),
	)

	err = p.run(ctx)
	report := col.report(start)

	if err == nil && !opts.DryRun {
		spatial := opts.CreateIndex && col.anyGeometry.Load()
		if idxErr := snk.EnsureIndexes(ctx, opts.Collection, spatial); idxErr != nil {
			err = eris.Wrap(idxErr, "ingest: ensure indexes")
		}
	}

	p.log.Info("ingestion finished",
		zap.Int64("processed", report.Processed),
		zap.Int64("skipped", report.Skipped),
		zap.Int64("load_failed", report.LoadFailed),
		zap.Int64("key_collisions", report.KeyCollisions),
		zap.Duration("duration", report.Duration),
		zap.Error(err),
	)

	return report, err
}

func (p *pipeline) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	rowCh, readErrCh := Stream(gctx, p.opts.File, p.opts.Format)
	docCh := make(chan document.Document, p.opts.BatchSize)

	workers, wctx := errgroup.WithContext(gctx)
	for i := 0; i < p.opts.Concurrency; i++ {
		workers.Go(func() error {
			for {
				// Cooperative cancellation checked between records.
				select {
				case <-wctx.Done():
					return wctx.Err()
				case rec, ok := <-rowCh:
					if !ok {
						return nil
					}
					p.process(wctx, rec, docCh)
				}
			}
		})
	}

	g.Go(func() error {
		defer close(docCh)
		if err := workers.Wait(); err != nil {
			return err
		}
		if err := <-readErrCh; err != nil {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return p.loadBatches(gctx, docCh)
	})

	return g.Wait()
}

// process runs the per-record chain: normalize keys, decode geometry,
// reproject, assemble, hand off to the loader. Failures skip the record.
func (p *pipeline) process(ctx context.Context, rec RawRecord, docCh chan<- document.Document) {
	attrs, collisions := normalize.Record(rec.Fields, p.opts.NormalizeKeys)
	for _, c := range collisions {
		p.col.keyCollisions.Add(1)
		p.col.diagnose(rec.Num, StageCollision,
			fmt.Sprintf("%q and %q both normalize to %q; later value kept", c.First, c.Second, c.Key))
	}

	g, err := p.decodeGeometry(rec, attrs)
	if err != nil {
		p.col.skipped.Add(1)
		p.col.diagnose(rec.Num, StageDecode, err.Error())
		return
	}

	if !geometry.IsEmpty(g) {
		reprojected, err := crs.Reproject(g, p.src, p.tgt)
		if err != nil {
			p.col.skipped.Add(1)
			p.col.diagnose(rec.Num, StageReproject, err.Error())
			return
		}
		g = reprojected
		p.col.anyGeometry.Store(true)
	}

	doc := document.Assemble(attrs, g, p.keyFields, p.meta)
	doc.Record = rec.Num

	select {
	case docCh <- doc:
		p.col.processed.Add(1)
	case <-ctx.Done():
	}
}

// decodeGeometry picks the geometry carrier for the record. Records without
// any declared or embedded geometry load as attribute-only documents.
func (p *pipeline) decodeGeometry(rec RawRecord, attrs map[string]any) (geom.T, error) {
	srid := p.src.Code

	switch {
	case p.opts.WKTField != "":
		v, ok := rec.Lookup(p.opts.WKTField)
		p.stripField(attrs, rec, p.opts.WKTField)
		if !ok || v == nil {
			return nil, nil // row without geometry keeps its attributes
		}
		s, isStr := v.(string)
		if !isStr {
			return nil, eris.Wrapf(geometry.ErrMalformedWKT, "column %q holds %T, not text", p.opts.WKTField, v)
		}
		return geometry.FromWKT(s, srid)

	case len(rec.Geometry) > 0 && string(rec.Geometry) != "null":
		return geometry.FromGeoJSON(rec.Geometry, srid)

	case rec.Shape != nil:
		return geometry.FromShape(rec.Shape, srid)

	case p.opts.LonField != "" || p.opts.LatField != "":
		lon, _ := rec.Lookup(p.opts.LonField)
		lat, _ := rec.Lookup(p.opts.LatField)
		return geometry.PointFromColumns(lon, lat, srid)

	default:
		return nil, nil
	}
}

// stripField removes the geometry-bearing column from the attribute map so
// the raw WKT text is not persisted alongside the decoded geometry.
func (p *pipeline) stripField(attrs map[string]any, rec RawRecord, declared string) {
	want := normalize.Key(declared)
	for _, f := range rec.Fields {
		if normalize.Key(f.Name) != want {
			continue
		}
		if p.opts.NormalizeKeys {
			delete(attrs, want)
		} else {
			delete(attrs, f.Name)
		}
	}
}

// loadBatches groups documents and streams them to the sink. Per-document
// failures are recorded; connectivity errors propagate and cancel the run.
func (p *pipeline) loadBatches(ctx context.Context, docCh <-chan document.Document) error {
	batch := make([]document.Document, 0, p.opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		// Do not submit work after cancellation.
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !p.opts.DryRun {
			res, err := p.snk.UpsertBatch(ctx, p.opts.Collection, batch)
			p.col.upserted.Add(res.Upserted)
			p.col.matched.Add(res.Matched)
			for _, f := range res.Failures {
				p.col.loadFailed.Add(1)
				record := 0
				if f.Index >= 0 && f.Index < len(batch) {
					record = batch[f.Index].Record
				}
				p.col.diagnose(record, StageLoad, fmt.Sprintf("key %s: %s", f.Key, f.Reason))
			}
			if err != nil {
				return err
			}
		}

		batch = batch[:0]
		return nil
	}

	for doc := range docCh {
		batch = append(batch, doc)
		if len(batch) >= p.opts.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}
