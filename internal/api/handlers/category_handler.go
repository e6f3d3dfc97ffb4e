package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/spendlog/expense-api/internal/auth"
	"github.com/spendlog/expense-api/internal/services"
)

// CategoryHandler handles HTTP requests for the caller's categories.
type CategoryHandler struct {
	service services.CategoryServiceProvider
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(service services.CategoryServiceProvider) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// CategoryPayload defines the structure for create and update requests.
type CategoryPayload struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// List returns the caller's categories, optionally filtered by the "q"
// name substring.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	categories, err := h.service.ListCategories(user.ID, r.URL.Query().Get("q"))
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to list categories")
		http.Error(w, "Failed to retrieve categories", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(categories)
}

// Create creates a new category owned by the caller.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var payload CategoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	cat, err := h.service.CreateCategory(user.ID, payload.Name, payload.Description)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to create category")
		http.Error(w, "Failed to create category", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cat)
}

// Get returns one of the caller's categories by id.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	cat, err := h.service.GetCategory(id, user.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Category not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("category_id", id).Msg("Failed to get category")
		http.Error(w, "Failed to retrieve category", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cat)
}

// Update replaces the name and description of an owned category.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	var payload CategoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	cat, err := h.service.UpdateCategory(id, user.ID, payload.Name, payload.Description)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Category not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("category_id", id).Msg("Failed to update category")
		http.Error(w, "Failed to update category", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cat)
}

// Delete removes an owned category. Its expenses survive with a null
// category.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Category not found", http.StatusNotFound)
		return
	}

	if err := h.service.DeleteCategory(id, user.ID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "Category not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("category_id", id).Msg("Failed to delete category")
		http.Error(w, "Failed to delete category", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
