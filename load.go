package idfm2bq

import (
	"context"
	"fmt"
	"path"

	"golang.org/x/sync/errgroup"
)

// loadConcurrency bounds parallel load jobs; BigQuery queues beyond that
// anyway.
const loadConcurrency = 4

type LoadOpts struct {
	Only string // restrict to one source by name
}

// Load creates the silver dataset if missing and runs one load job per
// silver table from its bronze objects. Jobs run with WriteTruncate, so the
// step is idempotent.
func Load(ctx context.Context, cfg Config, opts *LoadOpts) error {
	if opts == nil {
		opts = &LoadOpts{}
	}
	if opts.Only != "" {
		if _, ok := SourceByName(opts.Only); !ok {
			return fmt.Errorf("unknown source %q", opts.Only)
		}
	}

	warehouse, err := OpenWarehouse(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = warehouse.Close() }()

	if err := warehouse.EnsureDataset(ctx); err != nil {
		return err
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(loadConcurrency)
	for _, source := range Sources() {
		if opts.Only != "" && source.Name != opts.Only {
			continue
		}
		source := source
		eg.Go(func() error {
			uri := bronzeURI(cfg.Bucket, source)
			if _, err := warehouse.LoadFromGCS(egCtx, source.Table, uri, loadSpecFor(source)); err != nil {
				return fmt.Errorf("load %s: %w", source.Name, err)
			}
			return nil
		})
	}
	return eg.Wait()
}

func bronzeURI(bucket string, source Source) string {
	return fmt.Sprintf("gs://%s/%s", bucket, path.Join(bronzeRoot, source.BronzePrefix, source.ObjectName()))
}
