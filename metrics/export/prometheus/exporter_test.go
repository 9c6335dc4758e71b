package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot        goIdentity.MetricsSnapshot
	auditDropped    uint64
	deliveryDropped uint64
}

func (f fakeSource) MetricsSnapshot() goIdentity.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.auditDropped }
func (f fakeSource) DeliveryDropped() uint64                     { return f.deliveryDropped }

func TestCollectorCounters(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goIdentity.MetricsSnapshot{
			Counters: map[goIdentity.MetricID]uint64{
				goIdentity.MetricLoginSuccess: 7,
			},
		},
		auditDropped: 2,
	})

	expected := `
# HELP goidentity_login_success_total Logins that issued tokens.
# TYPE goidentity_login_success_total counter
goidentity_login_success_total 7
# HELP goidentity_audit_dropped_total Audit events dropped because the dispatcher buffer was full.
# TYPE goidentity_audit_dropped_total counter
goidentity_audit_dropped_total 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"goidentity_login_success_total", "goidentity_audit_dropped_total")
	require.NoError(t, err)
}

func TestCollectorHistogramIsCumulative(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goIdentity.MetricsSnapshot{
			Counters: map[goIdentity.MetricID]uint64{},
			Histograms: map[goIdentity.MetricID][]uint64{
				goIdentity.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
	})

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() != "goidentity_verify_latency_seconds" {
			continue
		}
		found = true
		h := mf.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(36), h.GetSampleCount())
		buckets := h.GetBucket()
		require.Len(t, buckets, 7)
		assert.Equal(t, 0.0001, buckets[0].GetUpperBound())
		assert.Equal(t, uint64(1), buckets[0].GetCumulativeCount())
		assert.Equal(t, uint64(28), buckets[6].GetCumulativeCount())
	}
	assert.True(t, found, "histogram not gathered")
}

func TestCollectorSkipsMissingHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{snapshot: goIdentity.MetricsSnapshot{}})
	// Every counter plus both dropped counters, no histogram.
	assert.Equal(t, 33, testutil.CollectAndCount(c))
}

func TestHandlerServesCollector(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goIdentity.MetricsSnapshot{
			Counters: map[goIdentity.MetricID]uint64{goIdentity.MetricLogout: 3},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(c).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goidentity_logout_total 3")
}
