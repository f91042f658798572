package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/usage"
)

const defaultUsageWindow = 24 * time.Hour

// UsageSummarizer aggregates recorded synthesis attempts.
type UsageSummarizer interface {
	Summarize(ctx context.Context, since time.Time) ([]usage.Summary, error)
}

type UsageHandler struct {
	usage  UsageSummarizer
	logger *slog.Logger
	now    func() time.Time
}

func NewUsageHandler(u UsageSummarizer, logger *slog.Logger) *UsageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageHandler{usage: u, logger: logger, now: time.Now}
}

// Usage reports per-provider totals since ?since= (RFC 3339), defaulting to
// the last 24 hours.
func (h *UsageHandler) Usage(w http.ResponseWriter, r *http.Request) {
	since := h.now().Add(-defaultUsageWindow)
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, r, h.logger, tts.SchemaViolation("since", "must be an RFC 3339 timestamp"))
			return
		}
		since = t
	}

	summary, err := h.usage.Summarize(r.Context(), since)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if summary == nil {
		summary = []usage.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"since": since.UTC().Format(time.RFC3339), "usage": summary})
}
