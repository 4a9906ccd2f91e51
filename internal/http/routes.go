package httpx

import (
	"log/slog"
	"net/http"

	"github.com/taskspring/taskspring-api/internal/ports"
	"github.com/taskspring/taskspring-api/internal/push"
	"github.com/taskspring/taskspring-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs     *service.JobService
	Hub      *push.Hub
	Verifier ports.TokenVerifier
	Health   map[string]HealthCheck
	Logger   *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	streamHandlers := &StreamHandlers{Hub: services.Hub, Logger: logger}

	healthHandlers := &HealthHandlers{Checks: services.Health}

	registerJobRoutes(mux, jobHandlers, streamHandlers, services.Verifier)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandlers.Health))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandlers.Health))

	return Recover(logger)(Logging(logger)(mux))
}

func registerJobRoutes(
	mux *http.ServeMux,
	h *JobHandlers,
	stream *StreamHandlers,
	verifier ports.TokenVerifier,
) {
	wrap := func(hh http.HandlerFunc) http.Handler {
		if verifier != nil {
			return RequireAuth(verifier)(hh)
		}
		return hh
	}

	// The literal events segment wins over {id} in pattern precedence.
	mux.Handle("GET /api/jobs/events", wrap(stream.Events))
	mux.Handle("POST /api/jobs", wrap(h.CreateJob))
	mux.Handle("GET /api/jobs", wrap(h.ListJobs))
	mux.Handle("GET /api/jobs/{id}", wrap(h.GetJob))
}
