package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"
	"github.com/aussiebroadwan/vcissuer/pkg/httpx"
	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
)

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness probe endpoint returning basic service health status, uptime, and version information
//	@Description	This endpoint always returns 200 OK if the service is running
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	issuersdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := issuersdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}
		httpx.WriteJSON(w, http.StatusOK, response)
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, and the status of the code store and the credential signer
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	issuersdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	issuersdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	signer ReadinessChecker,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"store":  "ok",
			"signer": "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		// Check store connectivity
		if err := st.Ping(r.Context()); err != nil {
			checks["store"] = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		// Check the mdoc signer has a key and certificate loaded
		if signer == nil {
			checks["signer"] = "error: no signer configured"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else if err := signer.Ready(); err != nil {
			checks["signer"] = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		response := issuersdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
