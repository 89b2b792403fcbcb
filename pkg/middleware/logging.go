package middleware

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/vango-dev/formkit/pkg/transport"
)

// Logging creates middleware that logs each submission.
// Successful requests log at debug level, failures at warn.
// If logger is nil, slog.Default() is used.
func Logging(logger *slog.Logger) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next transport.Client) transport.Client {
		return transport.ClientFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			start := time.Now()
			resp, err := next.Do(ctx, req)

			attrs := []any{
				"method", req.Method,
				"url", req.URL,
				"request_id", req.ID,
				"outcome", Outcome(err),
				"duration", time.Since(start),
			}
			if err != nil {
				logger.WarnContext(ctx, "submission failed", append(attrs, "error", err)...)
				return resp, err
			}
			if resp != nil {
				attrs = append(attrs, "status", resp.StatusCode)
			}
			logger.DebugContext(ctx, "submission", attrs...)
			return resp, nil
		})
	}
}

func fieldNames(fields map[string][]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
