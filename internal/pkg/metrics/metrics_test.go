package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSystemState(t *testing.T) {
	all := []string{"UNKNOWN", "OFF", "ON", "TRANSIENT"}
	SetSystemState("ON", all)

	assert.Equal(t, 1.0, testutil.ToFloat64(SystemState.WithLabelValues("ON")))
	assert.Equal(t, 0.0, testutil.ToFloat64(SystemState.WithLabelValues("OFF")))

	SetSystemState("TRANSIENT", all)
	assert.Equal(t, 0.0, testutil.ToFloat64(SystemState.WithLabelValues("ON")))
	assert.Equal(t, 1.0, testutil.ToFloat64(SystemState.WithLabelValues("TRANSIENT")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	CommandsSent.WithLabelValues("START").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flightlab_commands_sent_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
