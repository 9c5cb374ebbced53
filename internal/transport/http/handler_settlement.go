package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"stakepit/internal/app/control"
	"stakepit/internal/arena"
	"stakepit/internal/settlement"
	"stakepit/internal/store"

	"github.com/go-chi/chi/v5"
)

type SettlementHandlers struct {
	svc *control.Service
}

func NewSettlementHandlers(svc *control.Service) *SettlementHandlers {
	return &SettlementHandlers{svc: svc}
}

func (h *SettlementHandlers) Transactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")
		resp, err := h.svc.ListTransactions(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, control.ErrUnknownSession) {
				WriteHTTPError(w, http.StatusNotFound, "session_not_found")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (h *SettlementHandlers) PaymentAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")
		acct, err := h.svc.PaymentAccount(r.Context(), sessionID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				WriteHTTPError(w, http.StatusNotFound, "payment_account_not_found")
			case errors.Is(err, store.ErrNotConfigured):
				WriteHTTPError(w, http.StatusServiceUnavailable, "store_not_configured")
			default:
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}
		_ = json.NewEncoder(w).Encode(acct)
	}
}

// CreatePaymentAccount opens the escrow row ahead of a start. 201 on
// first creation, 200 when the account already existed.
func (h *SettlementHandlers) CreatePaymentAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")
		acct, created, err := h.svc.CreatePaymentAccount(r.Context(), sessionID)
		if err != nil {
			switch {
			case errors.Is(err, settlement.ErrNotConfigured):
				WriteHTTPError(w, http.StatusServiceUnavailable, "settlement_not_configured")
			case errors.Is(err, store.ErrNotConfigured):
				WriteHTTPError(w, http.StatusServiceUnavailable, "store_not_configured")
			case errors.Is(err, store.ErrNotFound):
				WriteHTTPError(w, http.StatusNotFound, "session_not_found")
			default:
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}
		if created {
			w.WriteHeader(http.StatusCreated)
		}
		_ = json.NewEncoder(w).Encode(acct)
	}
}

// Distribute re-runs the payout stage for a finished session. The
// winner is optional; standings decide when it is absent.
func (h *SettlementHandlers) Distribute() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "session_id")
		var body struct {
			Winner string `json:"winner"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		res, err := h.svc.TriggerDistribution(r.Context(), sessionID, body.Winner)
		if err != nil {
			metricDistributionErrors.Add(1)
			var verr *arena.ValidationError
			var gwErr *settlement.GatewayError
			var serr *settlement.StageError
			switch {
			case errors.Is(err, control.ErrSessionRunning):
				WriteHTTPError(w, http.StatusConflict, "session_running")
			case errors.Is(err, control.ErrUnknownSession):
				WriteHTTPError(w, http.StatusNotFound, "session_not_found")
			case errors.Is(err, control.ErrNoWinner):
				WriteHTTPError(w, http.StatusConflict, "winner_unresolved")
			case errors.As(err, &verr):
				WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			case errors.Is(err, settlement.ErrNotConfigured):
				WriteHTTPError(w, http.StatusServiceUnavailable, "settlement_not_configured")
			case errors.As(err, &gwErr):
				WriteHTTPError(w, http.StatusBadGateway, "distribution_failed")
			case errors.As(err, &serr):
				WriteHTTPError(w, http.StatusInternalServerError, "distribution_failed")
			default:
				WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			}
			return
		}
		metricDistributionTotal.Add(1)
		_ = json.NewEncoder(w).Encode(res)
	}
}
