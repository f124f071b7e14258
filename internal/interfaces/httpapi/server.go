package httpapi

import (
	"net/http"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/h2h-insight/internal/platform/id"
	"github.com/riskibarqy/h2h-insight/internal/platform/logging"
	"github.com/riskibarqy/h2h-insight/internal/platform/metrics"
)

type RouterConfig struct {
	ServiceName        string
	SwaggerEnabled     bool
	CORSAllowedOrigins []string
	// Metrics is nil when the /metrics endpoint is disabled.
	Metrics *metrics.Recorder
	Logger  *logging.Logger
}

func NewRouter(handler *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.SwaggerEnabled, cfg.Metrics)
	registerStatsRoutes(mux, handler)

	root := RequestMetrics(cfg.Metrics, mux)
	logged := RequestLogging(logger, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, root)))
	return RequestTracing(cfg.ServiceName, RequestID(id.NewRandomGenerator(), logged))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeError(ctx, w, crerr.Newf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
