package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// HealthHandler serves liveness and storage reachability probes.
type HealthHandler struct {
	db         *sql.DB
	appName    string
	appVersion string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB, appName, appVersion string) *HealthHandler {
	return &HealthHandler{db: db, appName: appName, appVersion: appVersion}
}

// Live responds to the liveness probe with app metadata.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Healthy",
		"app":     h.appName,
		"version": h.appVersion,
	})
}

// DBPing checks that the database is reachable.
func (h *HealthHandler) DBPing(w http.ResponseWriter, r *http.Request) {
	var one int
	if err := h.db.QueryRow("SELECT 1").Scan(&one); err != nil {
		log.Error().Err(err).Msg("Database ping failed")
		http.Error(w, "Database unreachable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"database": "ok"})
}
