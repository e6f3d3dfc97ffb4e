package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spendlog/expense-api/internal/auth"
	"github.com/spendlog/expense-api/internal/services"
)

// ExpenseHandler handles HTTP requests for the caller's expenses.
type ExpenseHandler struct {
	service services.ExpenseServiceProvider
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(service services.ExpenseServiceProvider) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

// ExpensePayload defines the structure for create and update requests.
// spent_at is RFC 3339 and defaults to the current time when omitted.
type ExpensePayload struct {
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Note       *string         `json:"note"`
	SpentAt    time.Time       `json:"spent_at"`
	CategoryID *int64          `json:"category_id"`
}

func (p ExpensePayload) toInput() services.ExpenseInput {
	return services.ExpenseInput{
		Amount:     p.Amount,
		Currency:   p.Currency,
		Note:       p.Note,
		SpentAt:    p.SpentAt,
		CategoryID: p.CategoryID,
	}
}

// parseFilter reads the optional start, end and category_id query
// parameters. Timestamps are RFC 3339.
func parseFilter(r *http.Request) (services.ExpenseFilter, error) {
	var filter services.ExpenseFilter
	q := r.URL.Query()

	if raw := q.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, err
		}
		filter.Start = &t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, err
		}
		filter.End = &t
	}
	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.CategoryID = &id
	}
	return filter, nil
}

// List returns the caller's expenses, newest first, with optional date
// range and category filters.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, "Invalid filter parameters", http.StatusBadRequest)
		return
	}

	expenses, err := h.service.ListExpenses(user.ID, filter)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list expenses")
		http.Error(w, "Failed to retrieve expenses", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(expenses)
}

// Create creates a new expense owned by the caller.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var payload ExpensePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	exp, err := h.service.CreateExpense(user.ID, payload.toInput())
	if err != nil {
		if errors.Is(err, services.ErrInvalidCategory) {
			http.Error(w, "Invalid category_id", http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to create expense")
		http.Error(w, "Failed to create expense", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(exp)
}

// Get returns one of the caller's expenses by id.
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Expense not found", http.StatusNotFound)
		return
	}

	exp, err := h.service.GetExpense(id, user.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Expense not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("expense_id", id).Msg("Failed to get expense")
		http.Error(w, "Failed to retrieve expense", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exp)
}

// Update replaces all mutable fields of an owned expense.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Expense not found", http.StatusNotFound)
		return
	}

	var payload ExpensePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	exp, err := h.service.UpdateExpense(id, user.ID, payload.toInput())
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Expense not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, services.ErrInvalidCategory) {
			http.Error(w, "Invalid category_id", http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Int64("expense_id", id).Msg("Failed to update expense")
		http.Error(w, "Failed to update expense", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exp)
}

// Delete removes an owned expense.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Expense not found", http.StatusNotFound)
		return
	}

	if err := h.service.DeleteExpense(id, user.ID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Expense not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("expense_id", id).Msg("Failed to delete expense")
		http.Error(w, "Failed to delete expense", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
