package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/observability"
	"github.com/kbukum/audiotranscriber/version"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

// Health returns a handler that reports service health including component
// statuses. A component that is down turns the response into a 503.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := observability.NewServiceHealth(serviceName, version.Short())
		if checker != nil {
			sh.AddComponents(checker(c.Request.Context()))
		}

		httpStatus := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			httpStatus = http.StatusServiceUnavailable
		}
		c.JSON(httpStatus, gin.H{
			"service":    sh.Service,
			"status":     sh.Status,
			"version":    sh.Version,
			"components": sh.Components,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		})
	}
}
