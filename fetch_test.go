package idfm2bq

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchToFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	outDir := testTempdir(t)
	dest := filepath.Join(outDir, "nested", "out.bin")
	written, err := fetchToFile(context.Background(), server.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(5), written)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestFetchToFileBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	outDir := testTempdir(t)
	_, err := fetchToFile(context.Background(), server.URL, filepath.Join(outDir, "out.bin"))
	require.ErrorContains(t, err, "unexpected status")
}

func TestFetchJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"a": 1}`))
	}))
	defer server.Close()

	var got map[string]int
	require.NoError(t, fetchJSON(context.Background(), server.URL, &got))
	assert.Equal(t, map[string]int{"a": 1}, got)
}

func TestWriteNDJSON(t *testing.T) {
	outDir := testTempdir(t)
	dest := filepath.Join(outDir, "rows.ndjson")

	type row struct {
		Name string `json:"name"`
	}
	require.NoError(t, writeNDJSON(dest, []row{{Name: "a"}, {Name: "b"}}))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, []string{`{"name":"a"}`, `{"name":"b"}`}, lines)
}
