package idfm2bq

import (
	"context"
	"log/slog"
)

// Check verifies both cloud surfaces before any data moves: the bronze
// bucket must exist and BigQuery must accept jobs for the project.
func Check(ctx context.Context, cfg Config) error {
	bronze, err := OpenBronze(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = bronze.Close() }()

	if err := bronze.Check(ctx); err != nil {
		return err
	}
	slog.Info("Bucket " + cfg.Bucket + " is reachable")

	warehouse, err := OpenWarehouse(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = warehouse.Close() }()

	if err := warehouse.Check(ctx); err != nil {
		return err
	}
	slog.Info("BigQuery project " + cfg.ProjectID + " is reachable")
	return nil
}
