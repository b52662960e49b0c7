package middleware

import (
	"github.com/gorilla/mux"

	"github.com/R3E-Network/sira_platform/internal/app/metrics"
)

// MetricsMiddleware records HTTP metrics labelled by route template. It must
// be installed with Router.Use so the matched route is known.
func MetricsMiddleware() mux.MiddlewareFunc {
	return metrics.InstrumentHandler
}
