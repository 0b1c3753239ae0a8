package idfm2bq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// fetchTimeout matches the portal exports, which can take minutes to
// materialize server-side before the first byte arrives.
const fetchTimeout = 5 * time.Minute

const userAgent = "idfm2bq/1.0"

var fetchClient = &http.Client{Timeout: fetchTimeout}

// fetchToFile downloads url into destPath, creating parent directories.
// Returns the number of bytes written.
func fetchToFile(ctx context.Context, url, destPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := fetchClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = dest.Close() }()

	written, err := io.Copy(dest, resp.Body)
	if err != nil {
		return written, fmt.Errorf("fetch %s: %w", url, err)
	}

	slog.Info(fmt.Sprintf("Fetched %s (%.2f MB)", filepath.Base(destPath), float64(written)/(1024*1024)))
	return written, nil
}

// fetchJSON downloads url and decodes the body into v.
func fetchJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := fetchClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("fetch %s: decode: %w", url, err)
	}
	return nil
}

// writeNDJSON writes one JSON object per line, the layout BigQuery load
// jobs expect for JSON sources.
func writeNDJSON[T any](destPath string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	dest, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer func() { _ = dest.Close() }()

	enc := json.NewEncoder(dest)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return dest.Close()
}
