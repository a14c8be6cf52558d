package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Trace starts a server span per request using the global tracer provider.
func Trace(serviceName string) gin.HandlerFunc {
	if serviceName == "" {
		serviceName = "studydeck"
	}
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		return r.URL.Path != "/healthcheck" && r.URL.Path != "/metrics"
	}))
}
