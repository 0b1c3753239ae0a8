package idfm2bq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// Warehouse wraps the BigQuery client for the silver and gold layers.
type Warehouse struct {
	client   *bigquery.Client
	dataset  string
	location string
}

func OpenWarehouse(ctx context.Context, cfg Config) (*Warehouse, error) {
	client, err := bigquery.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	client.Location = cfg.Location
	return &Warehouse{client: client, dataset: cfg.Dataset, location: cfg.Location}, nil
}

func (w *Warehouse) Close() error {
	return w.client.Close()
}

// Check dry-runs a trivial query and lists datasets, confirming both job
// and metadata access.
func (w *Warehouse) Check(ctx context.Context) error {
	q := w.client.Query("SELECT 1")
	q.DryRun = true
	if _, err := q.Run(ctx); err != nil {
		return fmt.Errorf("dry run: %w", err)
	}

	it := w.client.Datasets(ctx)
	for {
		ds, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("list datasets: %w", err)
		}
		slog.Info("Found dataset " + ds.DatasetID)
	}
	return nil
}

// EnsureDataset creates the silver dataset in the configured location if it
// does not already exist.
func (w *Warehouse) EnsureDataset(ctx context.Context) error {
	ds := w.client.Dataset(w.dataset)
	err := ds.Create(ctx, &bigquery.DatasetMetadata{Location: w.location})
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", w.dataset, err)
	}
	slog.Info(fmt.Sprintf("Created dataset %s in %s", w.dataset, w.location))
	return nil
}

// LoadSpec describes one load job from a bronze object into a silver table.
type LoadSpec struct {
	Format         bigquery.DataFormat
	Schema         bigquery.Schema // nil means autodetect (or parquet self-description)
	SkipLeadingRow bool
	FieldDelimiter string // CSV only, defaults to ","
}

// LoadFromGCS runs a load job from uri into table with WriteTruncate, so
// re-running the silver step replaces rather than duplicates rows.
func (w *Warehouse) LoadFromGCS(ctx context.Context, table, uri string, spec LoadSpec) (int64, error) {
	gcsRef := bigquery.NewGCSReference(uri)
	gcsRef.SourceFormat = spec.Format
	switch {
	case spec.Format == bigquery.Parquet:
		// parquet carries its own schema
	case spec.Schema != nil:
		gcsRef.Schema = spec.Schema
	default:
		gcsRef.AutoDetect = true
	}
	if spec.Format == bigquery.CSV {
		if spec.SkipLeadingRow {
			gcsRef.SkipLeadingRows = 1
		}
		if spec.FieldDelimiter != "" {
			gcsRef.FieldDelimiter = spec.FieldDelimiter
		}
	}

	loader := w.client.Dataset(w.dataset).Table(table).LoaderFrom(gcsRef)
	loader.WriteDisposition = bigquery.WriteTruncate

	slog.Info(fmt.Sprintf("Loading %s into %s.%s", uri, w.dataset, table))
	job, err := loader.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", table, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", table, err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("load %s: %w", table, err)
	}

	rows, err := w.tableRows(ctx, table)
	if err != nil {
		return 0, err
	}
	slog.Info(fmt.Sprintf("Loaded %d rows into %s.%s", rows, w.dataset, table))
	return rows, nil
}

func (w *Warehouse) tableRows(ctx context.Context, table string) (int64, error) {
	md, err := w.client.Dataset(w.dataset).Table(table).Metadata(ctx)
	if err != nil {
		return 0, fmt.Errorf("metadata %s: %w", table, err)
	}
	return int64(md.NumRows), nil
}

// RunToTable executes query with table (inside the silver dataset) as the
// truncated destination.
func (w *Warehouse) RunToTable(ctx context.Context, table, query string) error {
	q := w.client.Query(query)
	q.Dst = w.client.Dataset(w.dataset).Table(table)
	q.WriteDisposition = bigquery.WriteTruncate

	slog.Info(fmt.Sprintf("Building %s.%s", w.dataset, table))
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("query %s: %w", table, err)
	}

	rows, err := w.tableRows(ctx, table)
	if err != nil {
		return err
	}
	slog.Info(fmt.Sprintf("Wrote %d rows to %s.%s", rows, w.dataset, table))
	return nil
}
