package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/caseflow/schedule-service/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

var validate = validator.New()

type Server struct {
	Server      *http.Server
	log         *zerolog.Logger
	db          *sql.DB
	scheduleAPI *ScheduleHandler
}

type Options struct {
	Addr         string
	JWTSecret    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func New(opts Options, db *sql.DB, log *zerolog.Logger) *Server {
	eventRepo := repository.NewEventRepository(db, *log)
	scheduleAPI := NewScheduleHandler(eventRepo, log)

	s := &Server{
		Server: &http.Server{
			Addr:         opts.Addr,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
		db:          db,
		log:         log,
		scheduleAPI: scheduleAPI,
	}

	r := mux.NewRouter()
	s.setupRoutes(r, opts.JWTSecret)
	s.Server.Handler = cors.New(cors.Options{
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "x-auth-token"},
	}).Handler(r)

	return s
}

func (s *Server) setupRoutes(r *mux.Router, jwtSecret string) {
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	// Health check endpoint
	r.HandleFunc("/health", s.healthCheck).Methods("GET")

	// Schedule routes; every operation requires a resolved user identity
	schedule := r.PathPrefix("/schedule").Subrouter()
	schedule.Use(AuthMiddleware(jwtSecret, s.log))
	schedule.HandleFunc("", s.scheduleAPI.CreateSchedule).Methods("POST")
	schedule.HandleFunc("", s.scheduleAPI.ListSchedules).Methods("GET")
	schedule.HandleFunc("/{id}", s.scheduleAPI.GetSchedule).Methods("GET")
	schedule.HandleFunc("/{id}", s.scheduleAPI.UpdateSchedule).Methods("PUT")
	schedule.HandleFunc("/{id}", s.scheduleAPI.DeleteSchedule).Methods("DELETE")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("address", s.Server.Addr).Msg("Starting server")
	return s.Server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info().Msg("Shutting down server")
	return s.Server.Shutdown(ctx)
}

// loggingMiddleware logs all incoming requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{w, http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Str("duration", duration.String()).
			Msg("Request processed")
	})
}

// recoveryMiddleware recovers from handler panics and returns a 500
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error().Interface("panic", err).Str("path", r.URL.Path).Msg("Recovered from panic")
				http.Error(w, `{"status":"error","message":"Internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.db == nil {
		s.log.Error().Msg("Database is not initialized")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unhealthy","error":"database not initialized"}`))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.log.Error().Err(err).Msg("Database health check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unhealthy","error":"database connection failed"}`))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
