package http

import (
	"net/http"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse-io/gatehouse/pkg/authsdk"
	"github.com/gatehouse-io/gatehouse/pkg/httpx"
)

// ReadyzHandler is the readiness probe. It checks the permission database and
// the shared session store and reports 503 while either is unreachable.
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	sessions Pinger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			Database:     "ok",
			SessionStore: "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if sessions != nil {
			if err := sessions.Ping(r.Context()); err != nil {
				checks.SessionStore = "error: " + err.Error()
				overallStatus = "degraded"
				statusCode = http.StatusServiceUnavailable
			}
		}

		response := authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
