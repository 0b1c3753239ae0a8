package idfm2bq

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type ExtractOpts struct {
	DataDir   string
	Only      string // restrict to one source by name
	FirstYear int
	LastYear  int
	KeepLocal bool // keep staging files after upload
}

// Extract downloads every configured source into the staging directory,
// normalizes what needs normalizing, and uploads the results to bronze.
func Extract(ctx context.Context, cfg Config, opts *ExtractOpts) error {
	if opts == nil {
		opts = &ExtractOpts{}
	}
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.FirstYear == 0 {
		opts.FirstYear = FirstValidationYear
	}
	if opts.LastYear == 0 {
		opts.LastYear = LastValidationYear
	}
	if opts.Only != "" {
		if _, ok := SourceByName(opts.Only); !ok {
			return fmt.Errorf("unknown source %q", opts.Only)
		}
	}

	bronze, err := OpenBronze(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = bronze.Close() }()

	for _, source := range Sources() {
		if opts.Only != "" && source.Name != opts.Only {
			continue
		}
		if err := extractSource(ctx, bronze, source, opts); err != nil {
			return fmt.Errorf("extract %s: %w", source.Name, err)
		}
		if !opts.KeepLocal {
			_ = os.RemoveAll(filepath.Join(opts.DataDir, source.Name))
		}
	}
	return nil
}

func extractSource(ctx context.Context, bronze *Bronze, source Source, opts *ExtractOpts) error {
	stagingDir := filepath.Join(opts.DataDir, source.Name)

	switch source.Kind {
	case KindParquetExport, KindCSVExport:
		dest := filepath.Join(stagingDir, source.ObjectName())
		if _, err := fetchToFile(ctx, source.ExportURL(), dest); err != nil {
			return err
		}
		_, err := bronze.UploadFile(ctx, dest, source.BronzePrefix)
		return err

	case KindJSONAPI:
		dest := filepath.Join(stagingDir, source.ObjectName())
		var err error
		switch source.Name {
		case "jours-feries":
			_, err = FetchJoursFeries(ctx, joursFeriesURL, dest)
		case "communes":
			_, err = FetchCommunes(ctx, CommuneURLs(), dest)
		default:
			panic("unhandled JSON source " + source.Name)
		}
		if err != nil {
			return err
		}
		_, err = bronze.UploadFile(ctx, dest, source.BronzePrefix)
		return err

	case KindWeather:
		lat, lon := weatherPoint(ctx, stagingDir)
		dest := filepath.Join(stagingDir, source.ObjectName())
		if _, err := FetchWeather(ctx, WeatherURL(lat, lon, opts.FirstYear, opts.LastYear), dest); err != nil {
			return err
		}
		_, err := bronze.UploadFile(ctx, dest, source.BronzePrefix)
		return err

	case KindValidations:
		return extractValidations(ctx, bronze, source, stagingDir, opts)

	default:
		panic("unknown source kind")
	}
}

// weatherPoint resolves the Open-Meteo query point from the station
// dataset, falling back to central Paris. A bad centroid only shifts the
// weather a few kilometers, so failures are not fatal.
func weatherPoint(ctx context.Context, stagingDir string) (lat, lon float64) {
	geoPath := filepath.Join(stagingDir, "gares.geojson")
	if _, err := fetchToFile(ctx, StationGeoJSONURL(), geoPath); err != nil {
		slog.Warn(fmt.Sprintf("Station geojson unavailable, using fallback point: %s", err))
		return fallbackLatitude, fallbackLongitude
	}
	raw, err := os.ReadFile(geoPath)
	if err != nil {
		slog.Warn(fmt.Sprintf("Station geojson unreadable, using fallback point: %s", err))
		return fallbackLatitude, fallbackLongitude
	}
	lat, lon, err = NetworkCentroid(raw)
	if err != nil {
		slog.Warn(fmt.Sprintf("Station centroid failed, using fallback point: %s", err))
		return fallbackLatitude, fallbackLongitude
	}
	slog.Info(fmt.Sprintf("Weather point: %.4f, %.4f", lat, lon))
	return lat, lon
}

func extractValidations(ctx context.Context, bronze *Bronze, source Source, stagingDir string, opts *ExtractOpts) error {
	csvDir := filepath.Join(stagingDir, "csv")

	for year := opts.FirstYear; year <= opts.LastYear; year++ {
		archivePath := filepath.Join(stagingDir, "raw", fmt.Sprintf("validations_%d.zip", year))
		if _, err := fetchToFile(ctx, source.ArchiveURL(year), archivePath); err != nil {
			return fmt.Errorf("year %d: %w", year, err)
		}
		outputPath := filepath.Join(csvDir, ValidationCSVName(year))
		if _, err := NormalizeValidations(archivePath, outputPath, year); err != nil {
			return fmt.Errorf("year %d: %w", year, err)
		}
	}

	_, err := bronze.UploadDir(ctx, csvDir, source.BronzePrefix, []string{".csv"})
	return err
}
