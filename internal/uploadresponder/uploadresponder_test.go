package uploadresponder_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zynqcloud/httpd/internal/uploadresponder"
)

func TestServeStoresPrettyPrintedJSON(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	err := uploadresponder.Serve(&buf, dir, "application/json", []byte(`{"a":1}`), true)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "HTTP/1.1 201 Created")
	require.Contains(t, out, "Content-Type: application/json")
	require.Contains(t, out, "File created successfully")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "upload_")
	require.True(t, filepath.Ext(entries[0].Name()) == ".json")

	stored, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(stored), "\n")

	var round map[string]any
	require.NoError(t, json.Unmarshal(stored, &round))
	require.Equal(t, float64(1), round["a"])
}

func TestServeRejectsNonJSONContentType(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	err := uploadresponder.Serve(&buf, dir, "text/plain", []byte(`{"a":1}`), true)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "415 Unsupported Media Type")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 0)
}

func TestServeRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	err := uploadresponder.Serve(&buf, dir, "application/json", []byte(`{not json`), true)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "400 Bad Request")
}

func TestServeAcceptsContentTypeWithParameters(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	err := uploadresponder.Serve(&buf, dir, "application/json; charset=utf-8", []byte(`{"x":true}`), false)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "201 Created")
	require.Contains(t, buf.String(), "Connection: close")
}
