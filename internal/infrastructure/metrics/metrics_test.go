package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/touchicons/internal/domain/entity"
)

func TestObserver_CountsEvents(t *testing.T) {
	m := New()
	obs := m.Observer("default")

	obs.OnIconStored(&entity.IconRecord{Origin: "https://a.test", IconType: entity.IconTypeTouch}, "/x.png")
	obs.OnIconStored(&entity.IconRecord{Origin: "https://b.test", IconType: entity.IconTypeTouch}, "/y.png")
	obs.OnIconEvicted("https://a.test", "/x.png")
	obs.OnIconLoadComplete("https://b.test", true)
	obs.OnIconLoadComplete("https://c.test", false)
	obs.OnIconLoadComplete("https://c.test", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.IconsStored.WithLabelValues("default", "touch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IconsEvicted.WithLabelValues("default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IconLoads.WithLabelValues("default", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IconLoads.WithLabelValues("default", "failure")))
}

func TestMetrics_InstancesDoNotShareRegistry(t *testing.T) {
	a, b := New(), New()

	a.Observer("p").OnIconEvicted("https://a.test", "")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.IconsEvicted.WithLabelValues("p")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.IconsEvicted.WithLabelValues("p")))
}

func TestMetrics_CacheSizeCollector(t *testing.T) {
	m := New()
	require.NoError(t, m.RegisterCacheSize(func() map[string]int {
		return map[string]int{"default": 3, "work": 7}
	}))

	count, err := testutil.GatherAndCount(m.Registry(), "touchicons_cached_icons")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_HandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordHTTPRequest(http.MethodGet, "/icons", "200", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `touchicons_http_requests_total{method="GET",path="/icons",status="200"} 1`)
}
