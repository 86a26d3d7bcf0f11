package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/graphql-complexity-gateway/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// ServiceName is attached to every log record.
const ServiceName = "graphql-complexity-gateway"

// NewLogger builds the process logger from the configured level and format.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", ServiceName)
}

// LivenessHandler returns 200 OK unconditionally.
func LivenessHandler() http.HandlerFunc {
	return sharedobs.LivenessHandler()
}

// ReadinessHandler returns 503 until every checker reports ready.
func ReadinessHandler(checkers ...ReadinessChecker) http.HandlerFunc {
	return sharedobs.ReadinessHandler(allReady(checkers))
}

type allReady []ReadinessChecker

func (a allReady) CheckReadiness(ctx context.Context) error {
	for _, c := range a {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
