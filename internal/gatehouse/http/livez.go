package http

import (
	"net/http"
	"time"

	"github.com/gatehouse-io/gatehouse/pkg/authsdk"
	"github.com/gatehouse-io/gatehouse/pkg/httpx"
)

// LivezHandler is the liveness probe. It answers 200 whenever the process is
// up, dependency health belongs to /readyz.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}
		httpx.WriteJSON(w, http.StatusOK, response)
	}
}
