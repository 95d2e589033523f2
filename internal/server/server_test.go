package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/report"
	"github.com/sw33tLie/baseline-lite/pkg/storage"
)

func testIndex() *index.Index {
	return index.Build([]baseline.FeatureRecord{
		{ID: "gap", Name: "Gap", Status: baseline.NewlyAvailable, Description: "Gutters.", CompatKeys: []string{"css.properties.gap"}},
		{ID: "has", Name: ":has()", Status: baseline.Limited, CompatKeys: []string{"css.selectors.has"}},
		{ID: "async-clipboard", Name: "Async clipboard", Status: baseline.Limited, CompatKeys: []string{"api.Navigator.clipboard.readText"}},
	}, nil)
}

func newTestServer(t *testing.T, policy report.Policy, db *storage.DB) *httptest.Server {
	t.Helper()
	s := New(index.NewStore(nil), db, policy, "", "")
	s.Publish(testIndex())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postScan(t *testing.T, url string, req ScanRequest) (*http.Response, ScanResponse) {
	t.Helper()
	body, _ := json.Marshal(req)
	resp, err := http.Post(url+"/api/scan", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out ScanResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestScan(t *testing.T) {
	srv := newTestServer(t, report.DefaultPolicy(), nil)

	resp, out := postScan(t, srv.URL, ScanRequest{Path: "site.css", Text: "div:has(p) { gap: 1px; }"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "css", out.Language)
	require.Len(t, out.Diagnostics, 2)
	assert.Equal(t, ":has", out.Diagnostics[0].Key)
	assert.Equal(t, report.SeverityInformation, out.Diagnostics[0].Severity)
	assert.Equal(t, "gap", out.Diagnostics[1].Key)
	assert.Equal(t, report.SeverityWarning, out.Diagnostics[1].Severity)
	assert.Equal(t, "Baseline Lite: 1 limited, 1 newly", out.Summary)
	require.Len(t, out.Groups, 2)

	resp, out = postScan(t, srv.URL, ScanRequest{Language: "javascript", Text: "navigator.clipboard.readText()"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, "navigator.clipboard.readText", out.Diagnostics[0].Key)

	resp, _ = postScan(t, srv.URL, ScanRequest{Language: "markdown", Text: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScanPolicyDropsLimited(t *testing.T) {
	srv := newTestServer(t, report.Policy{Limited: report.SeverityNone}, nil)
	_, out := postScan(t, srv.URL, ScanRequest{Language: "css", Text: "div:has(p) { gap: 1px; }"})
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, "gap", out.Diagnostics[0].Key)
	assert.Equal(t, "Baseline Lite: 1 newly", out.Summary)
}

func TestLookup(t *testing.T) {
	srv := newTestServer(t, report.DefaultPolicy(), nil)

	resp, err := http.Get(srv.URL + "/api/lookup?token=gap")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out LookupResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "gap", out.Key)
	assert.Equal(t, "Gap", out.Entry.FeatureName)
	assert.True(t, strings.HasPrefix(out.Hover, "**Gap** — *Baseline: Newly available*"))

	resp2, err := http.Get(srv.URL + "/api/lookup?script=true&token=Navigator.clipboard.readText")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Get(srv.URL + "/api/lookup?token=nothing")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestIndexAndMetrics(t *testing.T) {
	srv := newTestServer(t, report.DefaultPolicy(), nil)

	resp, err := http.Get(srv.URL + "/api/index")
	require.NoError(t, err)
	var st index.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, 3, st.Features)
	assert.Equal(t, 2, st.ScriptKeys)

	postScan(t, srv.URL, ScanRequest{Language: "css", Text: "a { gap: 0 }"})

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `baseline_scans_total{language="css"}`)
	assert.Contains(t, string(body), `baseline_index_keys{namespace="script"} 2`)
}

func TestHistoryEndpoints(t *testing.T) {
	srv := newTestServer(t, report.DefaultPolicy(), nil)
	resp, err := http.Get(srv.URL + "/api/history/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	db, err := storage.Open(filepath.Join(t.TempDir(), "h.sqlite"))
	require.NoError(t, err)
	defer db.Close()
	run, err := db.NewRun(context.Background())
	require.NoError(t, err)
	_, err = db.UpsertFileFindings(context.Background(), run.ID, "a.css", []baseline.Finding{{Status: baseline.Limited, Key: ":has", Label: ":has()"}})
	require.NoError(t, err)

	srv = newTestServer(t, report.DefaultPolicy(), db)
	resp, err = http.Get(srv.URL + "/api/history/changes?limit=5")
	require.NoError(t, err)
	var changes []storage.Change
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&changes))
	resp.Body.Close()
	require.Len(t, changes, 1)
	assert.Equal(t, "added", changes[0].ChangeType)
}

func TestBasicAuth(t *testing.T) {
	s := New(index.NewStore(testIndex()), nil, report.DefaultPolicy(), "user", "pass")
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/index")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/index", nil)
	req.SetBasicAuth("user", "pass")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
