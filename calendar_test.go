package idfm2bq

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchJoursFeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"1990-05-01": "Fête du Travail",
			"2025-12-25": "Noël",
			"2020-01-01": "1er janvier"
		}`))
	}))
	defer server.Close()

	outDir := testTempdir(t)
	dest := filepath.Join(outDir, "jours_feries.ndjson")
	count, err := FetchJoursFeries(context.Background(), server.URL, dest)
	require.NoError(t, err)
	// 1990 is before the validation history and gets dropped.
	assert.Equal(t, 2, count)

	rows := readNDJSONRows[JourFerie](t, dest)
	require.Len(t, rows, 2)
	assert.Equal(t, "2020-01-01", rows[0].Date)
	assert.Equal(t, "1er janvier", rows[0].Nom)
	assert.Equal(t, "2025-12-25", rows[1].Date)
}

func TestFetchCommunes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"code": "75056", "nom": "Paris", "codeDepartement": "75", "population": 2145906}
		]`))
	}))
	defer server.Close()

	outDir := testTempdir(t)
	dest := filepath.Join(outDir, "communes.ndjson")
	count, err := FetchCommunes(context.Background(), []string{server.URL, server.URL}, dest)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows := readNDJSONRows[map[string]any](t, dest)
	require.Len(t, rows, 2)
	assert.Equal(t, "Paris", rows[0]["nom"])
	// The silver schema wants snake_case, not the API's camelCase.
	assert.Equal(t, "75", rows[0]["code_departement"])
	assert.NotContains(t, rows[0], "codeDepartement")
}

func readNDJSONRows[T any](t *testing.T, path string) []T {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var rows []T
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var row T
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		rows = append(rows, row)
	}
	require.NoError(t, scanner.Err())
	return rows
}
