package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nikhilbhutani/ttsgateway/internal/dispatch"
	"github.com/nikhilbhutani/ttsgateway/internal/schema"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// Dispatcher is the slice of *dispatch.Dispatcher the gateway needs.
type Dispatcher interface {
	Providers() []string
	Describe() []dispatch.ProviderInfo
	Voices(ctx context.Context, payload []byte) ([]tts.Voice, error)
	Synthesize(ctx context.Context, payload []byte) (*tts.SynthesisResult, error)
	Status(ctx context.Context) map[string]tts.HealthStatus
}

// TTSHandler translates HTTP requests into dispatcher calls. It does no
// validation of its own.
type TTSHandler struct {
	d      Dispatcher
	logger *slog.Logger
}

func NewTTSHandler(d Dispatcher, logger *slog.Logger) *TTSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTSHandler{d: d, logger: logger}
}

func (h *TTSHandler) Providers(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"providers": h.d.Providers()}
	if detail, _ := strconv.ParseBool(r.URL.Query().Get("detail")); detail {
		body["details"] = h.d.Describe()
	}
	writeJSON(w, http.StatusOK, body)
}

// Voices forwards the query string as a JSON object. Every parameter becomes a
// string property; the schema decides which ones are allowed.
func (h *TTSHandler) Voices(w http.ResponseWriter, r *http.Request) {
	params := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	voices, err := h.d.Voices(r.Context(), payload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if voices == nil {
		voices = []tts.Voice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

func (h *TTSHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.d.Status(r.Context()))
}

func (h *TTSHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error: "request body exceeds " + strconv.Itoa(MaxBodyBytes) + " bytes",
				Kind:  "payload_too_large",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "read request body: " + err.Error(), Kind: string(tts.KindSchemaViolation), Field: "(root)"})
		return
	}

	res, err := h.d.Synthesize(r.Context(), payload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Schema serves the declared schema table verbatim.
func (h *TTSHandler) Schema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, schema.Table())
}
