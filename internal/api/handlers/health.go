package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const readinessTimeout = 2 * time.Second

// Pinger is a backing service whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness. Neither calls a provider:
// provider health is /v1/status.
type HealthHandler struct {
	providers func() []string
	backends  map[string]Pinger
}

// NewHealthHandler reports readiness from the registered provider ids and
// the given backends. Callers leave unconfigured backends out of the map.
func NewHealthHandler(providers func() []string, backends map[string]Pinger) *HealthHandler {
	return &HealthHandler{providers: providers, backends: backends}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz is ok when at least one provider is registered and every configured
// backend answers a ping within readinessTimeout.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ids := h.providers()
	checks := make(map[string]string, len(h.backends)+1)
	ready := len(ids) > 0
	if ready {
		checks["registry"] = "ok"
	} else {
		checks["registry"] = "no providers registered"
	}

	names := make([]string, 0, len(h.backends))
	for name := range h.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		err := h.backends[name].Ping(ctx)
		cancel()
		if err != nil {
			checks[name] = "unhealthy: " + err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status, label := http.StatusOK, "ok"
	if !ready {
		status, label = http.StatusServiceUnavailable, "unhealthy"
	}
	writeJSON(w, status, map[string]any{"status": label, "providers": len(ids), "checks": checks})
}
