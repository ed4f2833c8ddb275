package rest

import (
	"insightai/internal/metrics"
	"insightai/internal/render"
	"insightai/internal/service"
	"insightai/internal/transport/rest/handler"
	"insightai/internal/transport/rest/middleware"
	"insightai/internal/transport/ws"
	"insightai/internal/view"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/swaggo/swag"

	_ "insightai/internal/docs"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService
	API            view.SurveyAPI
	Renderer       *render.HTMLRenderer
	Metrics        *metrics.Collector
	RateLimiter    *middleware.RateLimiter
	WSHub          *ws.Hub

	PublicURL   string
	CORSOrigins string
	SessionTTL  time.Duration
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	sessionHandler := handler.NewSessionHandler(c.SessionService)
	researcherHandler := handler.NewResearcherHandler(c.API, c.SessionService, c.PublicURL)
	pageHandler := handler.NewPageHandler(c.SessionService, c.AuthService, c.Renderer, c.SessionTTL, handler.SecureCookies(c.PublicURL))
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.SessionService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))
	if c.Metrics != nil {
		r.Use(middleware.Metrics(c.Metrics))
	}
	limit := func(h http.Handler) http.Handler { return h }
	if c.RateLimiter != nil {
		limit = c.RateLimiter.Limit
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	if c.Metrics != nil {
		r.Handle("/metrics", c.Metrics.Handler()).Methods("GET")
	}
	r.HandleFunc("/swagger/doc.json", swaggerDoc).Methods("GET")

	// Respondent pages (session cookie)
	r.Handle("/survey/{surveyId}/take", limit(http.HandlerFunc(pageHandler.Take))).Methods("GET", "POST")
	r.Handle("/survey/{surveyId}/whatsapp", limit(http.HandlerFunc(pageHandler.WhatsApp))).Methods("GET", "POST")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.Handle("/surveys/{surveyId}/sessions", limit(http.HandlerFunc(sessionHandler.Start))).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/sessions/{sessionId}", wsHandler.SessionWS).Methods("GET")

	// Respondent routes (require session token)
	sessionRoutes := v1.NewRoute().Subrouter()
	sessionRoutes.Use(authMW.RequireSession)

	sessionRoutes.HandleFunc("/sessions/{sessionId}", sessionHandler.Get).Methods("GET", "OPTIONS")
	sessionRoutes.Handle("/sessions/{sessionId}/messages", limit(http.HandlerFunc(sessionHandler.PostMessage))).Methods("POST", "OPTIONS")

	// Researcher routes (require researcher auth)
	researcherRoutes := v1.NewRoute().Subrouter()
	researcherRoutes.Use(authMW.RequireResearcher)

	researcherRoutes.HandleFunc("/dashboard", researcherHandler.Dashboard).Methods("GET", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys/generate", researcherHandler.GenerateSurvey).Methods("POST", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys/{surveyId}", researcherHandler.DeleteSurvey).Methods("DELETE", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys/{surveyId}/insights", researcherHandler.Insights).Methods("GET", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys/{surveyId}/insights/generate", researcherHandler.GenerateInsights).Methods("POST", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys/{surveyId}/share", researcherHandler.Share).Methods("GET", "OPTIONS")
	researcherRoutes.HandleFunc("/surveys/{surveyId}/transcripts", researcherHandler.Transcripts).Methods("GET", "OPTIONS")

	return r
}

func swaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		http.Error(w, `{"error":"swagger document unavailable"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(doc))
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
