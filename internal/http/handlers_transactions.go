package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

// transactionRequest is the wire shape of create/update bodies. Amount is
// kept raw because clients send it both as a number and as a quoted string.
type transactionRequest struct {
	Type     string          `json:"type"`
	Amount   json.RawMessage `json:"amount"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
}

func (req transactionRequest) toInput() (services.TransactionInput, error) {
	raw := strings.TrimSpace(string(req.Amount))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	cents, err := core.ParseAmountToCents(raw)
	if err != nil {
		return services.TransactionInput{}, err
	}

	in := services.TransactionInput{
		Type:     core.TransactionType(req.Type),
		Amount:   core.Money{Cents: cents},
		Category: req.Category,
	}
	if req.Date != "" {
		d, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			d, err = time.Parse("2006-01-02", req.Date)
		}
		if err == nil {
			in.Date = d.UTC()
		}
	}
	return in, nil
}

type transactionResponse struct {
	ID       int64     `json:"id"`
	User     string    `json:"user"`
	Type     string    `json:"type"`
	Amount   float64   `json:"amount"`
	Category string    `json:"category"`
	Date     time.Time `json:"date"`
}

type summaryResponse struct {
	User          string  `json:"user"`
	TotalIncome   float64 `json:"totalIncome"`
	TotalExpenses float64 `json:"totalExpenses"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:       t.ID,
		User:     t.UserID.String(),
		Type:     string(t.Type),
		Amount:   t.Amount.Float(),
		Category: t.Category,
		Date:     t.Date,
	}
}

func toSummaryResponse(s core.Summary) summaryResponse {
	return summaryResponse{
		User:          s.UserID.String(),
		TotalIncome:   s.TotalIncome.Float(),
		TotalExpenses: s.TotalExpenses.Float(),
	}
}

// handleTransactions serves the collection route: list and create.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r, userID)
	case http.MethodPost:
		s.createTransaction(w, r, userID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleTransactionSubroutes serves /api/transactions/{id} and
// /api/transactions/summary.
func (s *Server) handleTransactionSubroutes(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	if rest == "summary" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.getSummary(w, r, userID)
		return
	}

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.updateTransaction(w, r, userID, id)
	case http.MethodDelete:
		s.deleteTransaction(w, r, userID, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	list, err := s.ledger.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	created, summary, err := s.ledger.Create(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": toTransactionResponse(created),
		"summary":     toSummaryResponse(summary),
	})
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, userID uuid.UUID, id int64) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	updated, summary, err := s.ledger.Update(r.Context(), userID, id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": toTransactionResponse(updated),
		"summary":     toSummaryResponse(summary),
	})
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, userID uuid.UUID, id int64) {
	summary, err := s.ledger.Delete(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Transaction deleted successfully",
		"summary": toSummaryResponse(summary),
	})
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	summary, err := s.ledger.Summary(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalIncome":   summary.TotalIncome.Float(),
		"totalExpenses": summary.TotalExpenses.Float(),
		"balance":       summary.Balance().Float(),
	})
}
