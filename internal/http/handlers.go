package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shawarmaa/BiggerNumbers/internal/core"
	applog "github.com/Shawarmaa/BiggerNumbers/internal/log"
)

type linkTokenRequest struct {
	ClientUserID string `json:"client_user_id"`
}

type linkTokenResponse struct {
	LinkToken string `json:"link_token"`
}

type exchangeTokenRequest struct {
	PublicToken string `json:"public_token"`
}

type exchangeTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type spendingResponse struct {
	Daily   float64 `json:"daily"`
	Weekly  float64 `json:"weekly"`
	Monthly float64 `json:"monthly"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "BiggerNumbers API is running",
	})
}

// handleCreateLinkToken starts an account-linking session. The body is
// optional; callers may supply a client_user_id to tie the link session to
// their own user identity.
func (s *Server) handleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	var req linkTokenRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	token, err := s.upstream.CreateLinkToken(r.Context(), req.ClientUserID)
	if err != nil {
		s.respondUpstreamError(w, r, applog.OpLinkToken, err)
		return
	}
	respondJSON(w, http.StatusOK, linkTokenResponse{LinkToken: token})
}

// handleExchangePublicToken swaps a short-lived public token for a long-lived
// access token.
func (s *Server) handleExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	var req exchangeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.PublicToken) == "" {
		respondError(w, http.StatusBadRequest, "public_token is required")
		return
	}

	token, err := s.upstream.ExchangePublicToken(r.Context(), req.PublicToken)
	if err != nil {
		s.respondUpstreamError(w, r, applog.OpTokenExchange, err)
		return
	}
	respondJSON(w, http.StatusOK, exchangeTokenResponse{AccessToken: token})
}

// handleSpending fetches the transaction window for the given access token
// and returns the three spending totals.
func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request) {
	accessToken := chi.URLParam(r, "access_token")
	if strings.TrimSpace(accessToken) == "" {
		respondError(w, http.StatusBadRequest, "access_token is required")
		return
	}

	today := core.Today(s.now())
	window := core.NewWindow(today, s.lookbackDays)

	txns, cached := s.cachedTransactions(accessToken)
	if !cached {
		var err error
		txns, err = s.upstream.GetTransactions(r.Context(), accessToken, window.FetchStart, window.FetchEnd)
		if err != nil {
			s.respondUpstreamError(w, r, applog.OpSpending, err)
			return
		}
		s.storeTransactions(accessToken, txns)
	}

	summary, err := core.Summarize(txns, today)
	if err != nil {
		// Malformed wire records are rejected by the client, so this is a
		// programming error rather than bad caller input.
		s.logger.ErrorContext(r.Context(), "aggregation failed",
			applog.FieldOperation, applog.OpSpending, applog.FieldError, err.Error())
		respondError(w, http.StatusInternalServerError, "internal error computing spending")
		return
	}

	s.logger.InfoContext(r.Context(), "spending computed",
		applog.FieldOperation, applog.OpSpending,
		applog.FieldTxnCount, len(txns),
		applog.FieldWindowDays, s.lookbackDays)

	respondJSON(w, http.StatusOK, spendingResponse{
		Daily:   summary.Daily.InexactFloat64(),
		Weekly:  summary.Weekly.InexactFloat64(),
		Monthly: summary.Monthly.InexactFloat64(),
	})
}

func (s *Server) cachedTransactions(accessToken string) ([]core.Transaction, bool) {
	if s.txnCache == nil {
		return nil, false
	}
	return s.txnCache.Get(accessToken)
}

func (s *Server) storeTransactions(accessToken string, txns []core.Transaction) {
	if s.txnCache == nil {
		return
	}
	s.txnCache.Set(accessToken, txns)
}

func (s *Server) respondUpstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.WarnContext(r.Context(), "upstream call failed",
		applog.FieldOperation, op, applog.FieldError, err.Error())
	respondError(w, http.StatusBadRequest, err.Error())
}
