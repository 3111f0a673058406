package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/eckreport/internal/buildinfo"
	"github.com/xelth-com/eckreport/internal/config"
	"github.com/xelth-com/eckreport/internal/middleware"
	"github.com/xelth-com/eckreport/internal/services/visit"
	"github.com/xelth-com/eckreport/internal/session"
)

// Version of the visit report service
const Version = "1.0.0"

// Router wraps the mux router and the visit services
type Router struct {
	*mux.Router
	cfg    *config.Config
	store  *session.Store
	visits *visit.Service
	logger *zap.Logger
	form   *template.Template
}

// NewRouter creates a new HTTP router with all routes. assets must hold
// templates/form.html and static/.
func NewRouter(cfg *config.Config, store *session.Store, visits *visit.Service, assets fs.FS, logger *zap.Logger) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	form, err := template.ParseFS(assets, "templates/form.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse form template: %w", err)
	}

	r := &Router{
		Router: mux.NewRouter(),
		cfg:    cfg,
		store:  store,
		visits: visits,
		logger: logger,
		form:   form,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Static files
	static, err := fs.Sub(assets, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	// Everything below is bound to a visit session
	app := r.NewRoute().Subrouter()
	app.Use(middleware.SessionMiddleware(store, cfg.Session, logger))

	app.HandleFunc("/", r.showForm).Methods("GET")

	api := app.PathPrefix("/api").Subrouter()
	api.HandleFunc("/visits", r.submitVisit).Methods("POST")
	api.HandleFunc("/visits", r.listVisits).Methods("GET")
	api.HandleFunc("/reports/latest/{kind}", r.downloadLatest).Methods("GET")
	api.HandleFunc("/history.xlsx", r.downloadHistory).Methods("GET")
	api.HandleFunc("/signature", r.lastSignature).Methods("GET")
	api.HandleFunc("/session/end", r.endSession).Methods("POST")
	api.HandleFunc("/qr", r.formQRCode).Methods("GET")

	app.HandleFunc("/ws/pad", r.padSocket).Methods("GET")

	return r, nil
}

// Handler returns the router wrapped with request id and logging middleware
func (r *Router) Handler() http.Handler {
	return middleware.RequestID(middleware.Logging(r.logger)(r.Router))
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	body := map[string]interface{}{
		"status":   "ok",
		"version":  Version,
		"sessions": r.store.Len(),
	}
	for k, v := range buildinfo.Fields() {
		body[k] = v
	}
	respondJSON(w, http.StatusOK, body)
}

// sessionOf fetches the request's session; the middleware guarantees one
func (r *Router) sessionOf(w http.ResponseWriter, req *http.Request) (*session.Session, bool) {
	sess, ok := middleware.SessionFromContext(req.Context())
	if !ok {
		respondError(w, http.StatusInternalServerError, "Session unavailable")
	}
	return sess, ok
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
