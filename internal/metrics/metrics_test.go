package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("render", 150*time.Millisecond)
	pr.IncStageResult("render", ResultSuccess)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.AddIssues("warning", 3)
	pr.AddIssues("error", 0)
	pr.SetPagesRendered(12)
	pr.ObserveFiles(4, 10, 1)
	pr.IncPublishResult("pushed")
	pr.IncRunState("succeeded")

	require.InDelta(t, 3, testutil.ToFloat64(pr.issues.WithLabelValues("warning")), 0)
	require.InDelta(t, 12, testutil.ToFloat64(pr.pages), 0)
	require.InDelta(t, 10, testutil.ToFloat64(pr.files.WithLabelValues("unchanged")), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "ftdocs_build_outcomes_total"))
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	require.NotPanics(t, func() {
		pr.IncBuildOutcome(BuildOutcomeFailed)
		pr.ObserveFiles(1, 1, 1)
	})
	var _ Recorder = NoopRecorder{}
	var _ Recorder = pr
}
