package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/clinic-schedule/pkg/metrics"
)

func TestHandlerServesRegistry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, "clinic")
	m.ScheduleWrites.WithLabelValues("clinic", "create", "success").Inc()

	r := gin.New()
	New(reg).RegisterRoutes(r.Group(""))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `clinic_schedule_writes_total{kind="clinic",operation="create",status="success"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
