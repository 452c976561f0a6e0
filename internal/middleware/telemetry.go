package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sadwiik06/SocialFlow/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// feed navigation parameters copied onto the request span
var tracedQuery = []string{"page", "limit", "cursor", "index", "topics"}

// TracingMiddleware runs otelgin, then annotates the request span with the
// caller, the request id and the feed position being asked for.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	otel := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		otel(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		attrs := []attribute.KeyValue{attribute.String("http.route", c.FullPath())}
		if userID := c.GetString(util.ContextUserID); userID != "" {
			attrs = append(attrs, attribute.String("user.id", userID))
		}
		if requestID := util.GetRequestID(c); requestID != "" {
			attrs = append(attrs, attribute.String("request.id", requestID))
		}
		if id := c.Param("id"); id != "" {
			attrs = append(attrs, attribute.String("item.id", id))
		}
		for _, key := range tracedQuery {
			if v, ok := c.GetQuery(key); ok {
				attrs = append(attrs, attribute.String("feed."+key, v))
			}
		}
		span.SetAttributes(attrs...)

		if last := c.Errors.Last(); last != nil {
			span.RecordError(last.Err)
			span.SetStatus(codes.Error, last.Error())
		}
	}
}
