package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tupakrantina/backoffice/internal/api/handlers"
	"github.com/tupakrantina/backoffice/internal/auth"
	"github.com/tupakrantina/backoffice/pkg/logger"
)

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Report   *handlers.ReportHandler
	Leads    *handlers.LeadHandler
	Progress *handlers.ProgressHub
}

// NewRouter creates and configures the HTTP router.
// Report routes require a bearer access token; lead routes are public.
// ⭐ SSOT: routing is configured here only
func NewRouter(h Handlers, verifier *auth.Verifier, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Lead capture (public)
	api.HandleFunc("/leads", h.Leads.Submit).Methods("POST")
	api.HandleFunc("/whatsapp/verify", h.Leads.Verify).Methods("POST")

	// Cartera report
	reports := api.PathPrefix("/reports/cartera").Subrouter()
	reports.HandleFunc("", h.Report.Generate).Methods("POST")
	reports.HandleFunc("/score", h.Report.Score).Methods("GET", "POST")
	reports.HandleFunc("/last", h.Report.Last).Methods("GET")
	reports.HandleFunc("/status", h.Report.Status).Methods("GET")
	reports.Use(authMiddleware(verifier, log))

	ws := r.PathPrefix("/ws").Subrouter()
	ws.HandleFunc("/reports/progress", h.Progress.ServeWS).Methods("GET")
	ws.Use(authMiddleware(verifier, log))

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "tupak-backoffice",
	})
}
