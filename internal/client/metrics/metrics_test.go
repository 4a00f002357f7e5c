package metrics

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, 200, 10*time.Millisecond)
	m.ObserveRequest(http.MethodGet, 200, 20*time.Millisecond)
	m.ObserveRequest(http.MethodPost, 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "0")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requestDuration))
}

func TestObserveUploadAndSync(t *testing.T) {
	m := New()
	m.ObserveUpload("done", time.Second)
	m.ObserveUpload("commit_failed", 2*time.Second)
	m.ObserveUpload("", time.Second)
	m.ObserveSyncEvent("update")
	m.ObserveSyncEvent("malformed")
	m.ObserveSyncEvent("update")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("unknown")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.syncEvents.WithLabelValues("update")))
}

func TestWriteSummary(t *testing.T) {
	m := New()
	m.ObserveSyncEvent("update")
	m.ObserveRequest(http.MethodDelete, 401, time.Millisecond)

	var buf bytes.Buffer
	require.NoError(t, m.WriteSummary(&buf))
	assert.Equal(t,
		"mediax_client_requests_total{code=401,method=DELETE} 1\n"+
			"mediax_client_sync_events_total{kind=update} 1\n",
		buf.String())
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveUpload("done", time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mediax_client_uploads_total{outcome="done"} 1`)
}
