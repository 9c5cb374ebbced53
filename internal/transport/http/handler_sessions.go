package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"stakepit/internal/app/control"
	"stakepit/internal/arena"
	"stakepit/internal/settlement"
	"stakepit/internal/store"

	"github.com/go-chi/chi/v5"
)

type SessionHandlers struct {
	svc *control.Service
}

func NewSessionHandlers(svc *control.Service) *SessionHandlers {
	return &SessionHandlers{svc: svc}
}

// Start launches a session. The reply is 202 because hands keep
// playing long after this call returns; progress arrives over the
// event stream and the state endpoint.
func (h *SessionHandlers) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SessionID string `json:"session_id"`
			arena.Config
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		res, err := h.svc.StartSession(r.Context(), body.SessionID, body.Config)
		if err != nil {
			metricSessionStartErrors.Add(1)
			var verr *arena.ValidationError
			var cerr *arena.ConflictError
			var serr *settlement.StageError
			switch {
			case errors.As(err, &verr):
				WriteHTTPError(w, http.StatusBadRequest, "invalid_config")
			case errors.As(err, &cerr):
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":              "session_conflict",
					"running_session_id": cerr.RunningSessionID,
				})
			case errors.As(err, &serr):
				WriteHTTPError(w, http.StatusInternalServerError, "funding_failed")
			default:
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}
		if res.AlreadyRunning {
			_ = json.NewEncoder(w).Encode(map[string]any{"session_id": res.SessionID, "already_running": true})
			return
		}
		metricSessionStartTotal.Add(1)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"session_id": res.SessionID, "status": "accepted"})
	}
}

// Stop requests a halt at the next hand boundary. Stopping when
// nothing runs is not an error.
func (h *SessionHandlers) Stop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(h.svc.StopSession())
	}
}

func (h *SessionHandlers) State() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(h.svc.SessionState())
	}
}

func (h *SessionHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		resp, err := h.svc.ListSessions(r.Context(), limit, offset)
		if err != nil {
			if errors.Is(err, store.ErrNotConfigured) {
				WriteHTTPError(w, http.StatusServiceUnavailable, "store_not_configured")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *SessionHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")
		resp, err := h.svc.GetSession(r.Context(), sessionID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				WriteHTTPError(w, http.StatusNotFound, "session_not_found")
			case errors.Is(err, store.ErrNotConfigured):
				WriteHTTPError(w, http.StatusServiceUnavailable, "store_not_configured")
			default:
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
