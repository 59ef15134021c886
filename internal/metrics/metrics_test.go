package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/standardbeagle/fsguard/internal/errors"
	"github.com/standardbeagle/fsguard/internal/indexing"
)

func TestObserveRefresh(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.ObserveRefresh(indexing.RefreshEvent{BaseDir: "/srv", Kind: indexing.RefreshFull, Files: 6, Dirs: 3})
	c.ObserveRefresh(indexing.RefreshEvent{BaseDir: "/srv", Kind: indexing.RefreshPartial, ChangedDirs: 2, Files: 7, Dirs: 3})
	c.ObserveRefresh(indexing.RefreshEvent{BaseDir: "/srv", Kind: indexing.RefreshFresh, Loaded: true, Files: 7, Dirs: 3})
	c.ObserveRefresh(indexing.RefreshEvent{BaseDir: "/big", Kind: indexing.RefreshFull, Degraded: true, Files: 10})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.refreshesTotal.WithLabelValues("full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.refreshesTotal.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.refreshesTotal.WithLabelValues("loaded")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.filesTracked.WithLabelValues("/srv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.degradedTotal))
}

func TestObserveOutcomes(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.ObserveEdit("replaceLines", nil)
	c.ObserveEdit("replaceLines", fserrors.NewConflictError("/a", "x", "y"))
	c.ObserveEdit("deleteLines", errors.New("disk on fire"))
	c.ObserveSearch("content", 3*time.Millisecond, nil)
	c.ObserveToolCall("readFile", time.Millisecond, fserrors.NewNotFoundError("readFile", "/a"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.editsTotal.WithLabelValues("replaceLines", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.editsTotal.WithLabelValues("replaceLines", "concurrent_modification")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.editsTotal.WithLabelValues("deleteLines", "io_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.searchesTotal.WithLabelValues("content", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.toolCallsTotal.WithLabelValues("readFile", "not_found")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.ObserveEdit("insertLines", nil)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `fsguard_edits_total{op="insertLines",result="ok"} 1`), body)
}
