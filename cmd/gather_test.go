package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// writeTargets starts three upstreams (array, html, refused) and writes a
// targets file pointing at them.
func writeTargets(t *testing.T) string {
	t.Helper()
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[1,2]`)
	}))
	t.Cleanup(ok.Close)
	html := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html></html>`)
	}))
	t.Cleanup(html.Close)
	refused := httptest.NewServer(http.NotFoundHandler())
	refused.Close()

	path := filepath.Join(t.TempDir(), "targets.yaml")
	content := fmt.Sprintf("targets:\n  - name: a\n    url: %s\n  - name: b\n    url: %s\n  - name: c\n    url: %s\n", ok.URL, html.URL, refused.URL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(targetsFile string) appConfig {
	return appConfig{TargetsFile: targetsFile, FetchTimeout: 2 * time.Second}
}

func TestRunGather_JSON(t *testing.T) {
	var out bytes.Buffer
	err := runGather(context.Background(), testConfig(writeTargets(t)), "json", &out, zap.NewNop())
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 2, "b": null, "c": -1}`, out.String())
}

func TestRunGather_Table(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var out bytes.Buffer
	err := runGather(context.Background(), testConfig(writeTargets(t)), "table", &out, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "SOURCE  ACTIVITY  STATUS\n"+
		"a       2         ok\n"+
		"b       null      not json\n"+
		"c       -1        failed\n", out.String())
}

func TestRunGather_Strict(t *testing.T) {
	cfg := testConfig(writeTargets(t))
	cfg.Strict = true

	var out bytes.Buffer
	err := runGather(context.Background(), cfg, "json", &out, zap.NewNop())
	assert.ErrorIs(t, err, errUpstreamFailed)
	assert.Contains(t, err.Error(), "[c]")
	assert.Contains(t, out.String(), `"c": -1`, "report is still printed")
}

func TestRunGather_BadInput(t *testing.T) {
	var out bytes.Buffer
	err := runGather(context.Background(), testConfig(""), "xml", &out, zap.NewNop())
	assert.ErrorContains(t, err, "unknown format")

	err = runGather(context.Background(), testConfig(filepath.Join(t.TempDir(), "none.yaml")), "json", &out, zap.NewNop())
	assert.ErrorContains(t, err, "read file")
	assert.Empty(t, out.String())
}
