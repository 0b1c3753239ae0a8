package idfm2bq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherURL(t *testing.T) {
	url := WeatherURL(48.8566, 2.3522, 2015, 2024)
	assert.Contains(t, url, "latitude=48.8566")
	assert.Contains(t, url, "longitude=2.3522")
	assert.Contains(t, url, "start_date=2015-01-01")
	assert.Contains(t, url, "end_date=2024-12-31")
	assert.Contains(t, url, "weather_code")
}

func TestNetworkCentroid(t *testing.T) {
	feature := `{
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [2.0, 48.0]}},
			{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [4.0, 50.0]}}
		]
	}`
	lat, lon, err := NetworkCentroid([]byte(feature))
	require.NoError(t, err)
	assert.InDelta(t, 49.0, lat, 0.001)
	assert.InDelta(t, 3.0, lon, 0.001)
}

func TestNetworkCentroidInvalid(t *testing.T) {
	_, _, err := NetworkCentroid([]byte("not geojson"))
	require.Error(t, err)
}

func TestFetchWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"daily": {
				"time": ["2020-01-01", "2020-01-02", "2020-01-03"],
				"temperature_2m_min": [1.2, 0.8, -0.5],
				"temperature_2m_max": [6.1, 7.4, 4.0],
				"precipitation_sum": [0.0, 3.2, 11.8],
				"wind_speed_10m_max": [18.0, 25.5, 40.1],
				"weather_code": [3, 61, 65]
			}
		}`))
	}))
	defer server.Close()

	outDir := testTempdir(t)
	dest := filepath.Join(outDir, "meteo.parquet")
	days, err := FetchWeather(context.Background(), server.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, 3, days)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestFetchWeatherMismatchedSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"daily": {
				"time": ["2020-01-01", "2020-01-02"],
				"temperature_2m_min": [1.2],
				"temperature_2m_max": [6.1, 7.4],
				"precipitation_sum": [0.0, 3.2],
				"wind_speed_10m_max": [18.0, 25.5],
				"weather_code": [3, 61]
			}
		}`))
	}))
	defer server.Close()

	outDir := testTempdir(t)
	_, err := FetchWeather(context.Background(), server.URL, filepath.Join(outDir, "meteo.parquet"))
	require.ErrorIs(t, err, ErrInvalidInput)
}
