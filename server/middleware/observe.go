package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/audiotranscriber/observability"
)

// Observe wraps each request in an OperationContext and a server span, and
// records the request metrics when metrics is non-nil. The operation name is
// the matched route, so "/v1/records" rather than the raw URL.
func Observe(service string, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		oc := observability.NewOperationContext(service, c.Request.Method+" "+route,
			c.GetHeader(RequestIDHeader), metrics)

		ctx := observability.WithOperationContext(c.Request.Context(), oc)
		ctx, span := oc.StartSpanForOperation(ctx, observability.SpanHTTPRequest)
		observability.SetSpanAttribute(ctx, observability.AttrRoute, route)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		var err error
		if len(c.Errors) > 0 {
			err = c.Errors.Last().Err
		}
		oc.EndOperation(ctx, span, strconv.Itoa(status), err)
	}
}
