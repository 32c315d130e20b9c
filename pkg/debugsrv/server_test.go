package debugsrv

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New("localhost:0")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestFrameEndpoint(t *testing.T) {
	srv, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/debug/frame")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	srv.PublishFrame(`{"a":1}`)
	resp, err = http.Get(ts.URL + "/debug/frame")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"a":1}`, string(body))
}

func TestReportIntake(t *testing.T) {
	srv, ts := testServer(t)

	resp, err := http.Post(ts.URL+"/debug/report", "application/json",
		strings.NewReader(`{"kind":"payload-decode","message":"bad json"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	// direct report via the Reporter interface (embedded case)
	srv.Report("transport", errors.New("connection refused"))

	resp, err = http.Get(ts.URL + "/debug/reports?kind=transport")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	parsed, err := oj.ParseString(string(body))
	require.NoError(t, err)
	reports, ok := parsed.([]any)
	require.True(t, ok)
	require.Len(t, reports, 1)
	report, ok := reports[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "transport", report["kind"])
	assert.Equal(t, "connection refused", report["message"])
	assert.NotEmpty(t, report["id"])
}

func TestReportValidation(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Post(ts.URL+"/debug/report", "application/json",
		strings.NewReader(`{"message":"missing kind"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPReporter(t *testing.T) {
	srv, ts := testServer(t)

	reporter := NewHTTPReporter(ts.URL)
	reporter.Report("malformed-frame", errors.New("no delimiter"))

	require.Eventually(t, func() bool {
		srv.mutex.Lock()
		defer srv.mutex.Unlock()
		return len(srv.reports) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
