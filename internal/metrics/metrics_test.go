package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush_NoURLIsNoop(t *testing.T) {
	assert.NoError(t, Push(context.Background(), "", "featureprep"))
}

func TestPush_SendsToGateway(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Contains(t, r.URL.Path, "/metrics/job/featureprep")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	RunsTotal.WithLabelValues("succeeded").Inc()

	require.NoError(t, Push(context.Background(), srv.URL, "featureprep"))
	assert.Equal(t, int32(1), hits.Load())
}

func TestRecordsTotalLabels(t *testing.T) {
	before := testutil.ToFloat64(RecordsTotal.WithLabelValues("staging", "negative"))
	RecordsTotal.WithLabelValues("staging", "negative").Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(RecordsTotal.WithLabelValues("staging", "negative")))
}
