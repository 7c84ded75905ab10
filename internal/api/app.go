package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ameline/sealbox/internal/capture"
	"github.com/ameline/sealbox/internal/command"
	"github.com/ameline/sealbox/internal/delivery"
	"github.com/ameline/sealbox/internal/storage"
	"github.com/ameline/sealbox/internal/vault"
)

const maxSaveBodySize = 25 << 20 // 25MB, voice notes and photos are base64-inflated

type AppDeps struct {
	Vault      *vault.Vault
	Checker    *delivery.Checker
	Dispatcher *command.Dispatcher
	Token      string
	Version    string
}

// SaveRequest is the JSON body for POST /messages. Content is base64.
type SaveRequest struct {
	Type          string `json:"type"`
	Content       string `json:"content"`
	MimeType      string `json:"mime_type"`
	Note          string `json:"note"`
	Duration      string `json:"duration"`       // mm:ss, voice only
	DeliveryDelay string `json:"delivery_delay"` // Go duration string, optional
	PrepContext   string `json:"prep_context"`   // optional JSON
}

// MessageMeta is a message without its payload, as returned by list
// endpoints. Ready is derived at response time.
type MessageMeta struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	MimeType   string    `json:"mime_type"`
	Note       string    `json:"note,omitempty"`
	Duration   string    `json:"duration,omitempty"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	DeliveryAt time.Time `json:"delivery_at"`
	Status     string    `json:"status"`
	Ready      bool      `json:"ready"`
	Remaining  string    `json:"remaining"`
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/messages", handleSaveMessage(deps))
		r.Get("/messages", handleListMessages(deps))
		r.Get("/messages/counts", handleCounts(deps))
		r.Post("/messages/{id}/view", handleViewMessage(deps))
		r.Delete("/messages/{id}", handleDeleteMessage(deps))
		r.Post("/command", handleCommand(deps))
		r.Get("/locales", handleListLocales(deps))
		r.Post("/locale", handleSetLocale(deps))
		r.Post("/refresh", handleRefresh(deps))
	})

	return r
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": deps.Version,
		})
	}
}

func handleSaveMessage(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSaveBodySize)
		defer r.Body.Close()

		var req SaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Content == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		}

		blob, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
			return
		}

		var opts vault.SaveOptions
		if req.DeliveryDelay != "" {
			d, err := time.ParseDuration(req.DeliveryDelay)
			if err != nil || d <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid delivery_delay %q", req.DeliveryDelay)
				return
			}
			opts.Delay = d
		}
		opts.PrepContext = req.PrepContext

		var dur time.Duration
		if req.Duration != "" {
			parsed, err := parseClock(req.Duration)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid duration %q, want mm:ss", req.Duration)
				return
			}
			dur = parsed
		}

		a := capture.Artifact{
			Type:     req.Type,
			Blob:     blob,
			MimeType: req.MimeType,
			Duration: dur,
			Size:     int64(len(blob)),
		}
		m, err := deps.Vault.Save(a, req.Note, opts)
		if err != nil {
			if errors.Is(err, vault.ErrBadType) || errors.Is(err, vault.ErrEmptyArtifact) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save message: %v", err)
			return
		}

		deps.Checker.Kick()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(messageMeta(deps, m))
	}
}

func handleListMessages(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := deps.Vault.List()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list messages: %v", err)
			return
		}

		metas := make([]MessageMeta, len(msgs))
		for i, m := range msgs {
			metas[i] = messageMeta(deps, m)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"messages": metas})
	}
}

func handleCounts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at := time.Time{}
		if q := r.URL.Query().Get("at"); q != "" {
			parsed, err := time.Parse(time.RFC3339, q)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid at parameter: %v", err)
				return
			}
			at = parsed
		}

		counts, err := deps.Vault.Counts(at)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count messages: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(counts)
	}
}

func handleViewMessage(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		m, err := deps.Vault.View(id)
		if errors.Is(err, vault.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "message %s not found", id)
			return
		}
		if errors.Is(err, vault.ErrNotReady) {
			httpError(w, http.StatusConflict, "not_ready", "message %s is still sealed", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to view message: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"message":      messageMeta(deps, m),
			"content":      base64.StdEncoding.EncodeToString(m.Payload),
			"prep_context": m.PrepContext,
		})
	}
}

func handleDeleteMessage(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := deps.Vault.Delete(id); err != nil {
			if errors.Is(err, vault.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "message %s not found", id)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete message: %v", err)
			return
		}

		deps.Checker.Kick()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func handleCommand(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Utterance string `json:"utterance"`
			Locale    string `json:"locale"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Utterance == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "utterance is required")
			return
		}
		if req.Locale != "" {
			if err := deps.Dispatcher.SetLocale(req.Locale); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
		}

		res := deps.Dispatcher.Dispatch(req.Utterance)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}
}

func handleListLocales(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"active":  deps.Dispatcher.Locale(),
			"locales": command.Locales(),
		})
	}
}

func handleSetLocale(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Locale string `json:"locale"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := deps.Dispatcher.SetLocale(req.Locale); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"locale": req.Locale})
	}
}

func handleRefresh(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := deps.Checker.RunOnce()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "refresh failed: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	}
}

// parseClock parses a mm:ss recording length.
func parseClock(s string) (time.Duration, error) {
	var mm, ss int
	if _, err := fmt.Sscanf(s, "%d:%d", &mm, &ss); err != nil {
		return 0, err
	}
	if mm < 0 || ss < 0 || ss > 59 {
		return 0, fmt.Errorf("out of range: %s", s)
	}
	return time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second, nil
}

func messageMeta(deps AppDeps, m storage.Message) MessageMeta {
	remaining := deps.Vault.Remaining(m)
	return MessageMeta{
		ID:         m.ID,
		Type:       m.Type,
		MimeType:   m.MimeType,
		Note:       m.Note,
		Duration:   m.Duration,
		Size:       m.Size,
		CreatedAt:  m.CreatedAt,
		DeliveryAt: m.DeliveryAt,
		Status:     m.Status,
		Ready:      remaining == 0,
		Remaining:  vault.FormatRemaining(remaining),
	}
}
