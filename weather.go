package idfm2bq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/tidwall/geojson"
	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// Châtelet-Les Halles, roughly the barycenter of the network. Used when the
// station export cannot be parsed.
const (
	fallbackLatitude  = 48.8566
	fallbackLongitude = 2.3522
)

const openMeteoArchiveURL = "https://archive-api.open-meteo.com/v1/archive"

// NetworkCentroid computes the center of the station dataset's GeoJSON
// export, which is the single query point for the weather archive.
func NetworkCentroid(stationGeoJSON []byte) (lat, lon float64, err error) {
	obj, err := geojson.Parse(string(stationGeoJSON), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("parse station geojson: %w", err)
	}
	center := obj.Center()
	return center.Y, center.X, nil
}

// WeatherURL builds the Open-Meteo daily archive request for the year range.
func WeatherURL(lat, lon float64, firstYear, lastYear int) string {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("start_date", fmt.Sprintf("%d-01-01", firstYear))
	q.Set("end_date", fmt.Sprintf("%d-12-31", lastYear))
	q.Set("daily", "temperature_2m_min,temperature_2m_max,precipitation_sum,wind_speed_10m_max,weather_code")
	q.Set("timezone", "Europe/Paris")
	return openMeteoArchiveURL + "?" + q.Encode()
}

type openMeteoResponse struct {
	Daily struct {
		Time             []string  `json:"time"`
		TemperatureMin   []float64 `json:"temperature_2m_min"`
		TemperatureMax   []float64 `json:"temperature_2m_max"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
		WindSpeedMax     []float64 `json:"wind_speed_10m_max"`
		WeatherCode      []int64   `json:"weather_code"`
	} `json:"daily"`
}

// FetchWeather downloads the daily archive and stages it as a snappy
// parquet file at destPath, matching the parquet convention of the other
// bronze dimension exports. Returns the number of days written.
func FetchWeather(ctx context.Context, url, destPath string) (int, error) {
	var resp openMeteoResponse
	if err := fetchJSON(ctx, url, &resp); err != nil {
		return 0, err
	}

	daily := resp.Daily
	for _, sameLen := range [][]float64{daily.TemperatureMin, daily.TemperatureMax, daily.PrecipitationSum, daily.WindSpeedMax} {
		if len(sameLen) != len(daily.Time) {
			return 0, fmt.Errorf("%w: weather response series lengths differ", ErrInvalidInput)
		}
	}
	if len(daily.WeatherCode) != len(daily.Time) {
		return 0, fmt.Errorf("%w: weather response series lengths differ", ErrInvalidInput)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, err
	}
	destF, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}
	defer func() {
		if destF != nil {
			_ = destF.Close()
		}
	}()

	pf := writerfile.NewWriterFile(destF)
	pw, err := writer.NewJSONWriter(weatherParquetSchema(), pf, 4)
	if err != nil {
		return 0, fmt.Errorf("parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i, date := range daily.Time {
		row := map[string]any{
			"date":             date,
			"temperature_min":  daily.TemperatureMin[i],
			"temperature_max":  daily.TemperatureMax[i],
			"precipitation_mm": daily.PrecipitationSum[i],
			"wind_speed_max":   daily.WindSpeedMax[i],
			"weather_code":     daily.WeatherCode[i],
		}
		encoded, err := json.Marshal(row)
		if err != nil {
			return 0, err
		}
		if err := pw.Write(string(encoded)); err != nil {
			_ = pw.WriteStop()
			return 0, fmt.Errorf("parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return 0, fmt.Errorf("parquet close: %w", err)
	}

	err = destF.Close()
	destF = nil
	if err != nil {
		return 0, err
	}

	slog.Info(fmt.Sprintf("Staged %d weather days to %s", len(daily.Time), destPath))
	return len(daily.Time), nil
}

func weatherParquetSchema() string {
	fields := []map[string]string{
		{"Tag": "name=date, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=REQUIRED"},
		{"Tag": "name=temperature_min, type=DOUBLE, repetitiontype=OPTIONAL"},
		{"Tag": "name=temperature_max, type=DOUBLE, repetitiontype=OPTIONAL"},
		{"Tag": "name=precipitation_mm, type=DOUBLE, repetitiontype=OPTIONAL"},
		{"Tag": "name=wind_speed_max, type=DOUBLE, repetitiontype=OPTIONAL"},
		{"Tag": "name=weather_code, type=INT64, repetitiontype=OPTIONAL"},
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}
