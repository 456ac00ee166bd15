// Package server exposes the acceptance endpoint. A valid request schedules
// one chain in the background and is acknowledged at once; the chain's
// outcome is never reported back.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ppiankov/quizrunner/internal/model"
	"github.com/ppiankov/quizrunner/internal/worker"
	"go.uber.org/zap"
)

const maxRequestBytes = 1 << 20

// Server is the HTTP acceptance endpoint
type Server struct {
	cfg       *model.Config
	runner    worker.ChainRunner
	scheduler *worker.Scheduler
	logger    *zap.Logger
	http      *http.Server
}

// New creates a server that runs accepted chains with runner on scheduler
func New(cfg *model.Config, runner worker.ChainRunner, scheduler *worker.Scheduler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		runner:    runner,
		scheduler: scheduler,
		logger:    logger,
	}
	scheduler.OnPanic(func(v any) {
		logger.Error("chain panicked", zap.Any("panic", v))
	})
	s.http = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/quiz", s.handleQuiz)
	return r
}

// ListenAndServe serves until Shutdown is called
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then waits for running chains until ctx
// ends
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.http.Shutdown(ctx)
	schedErr := s.scheduler.Shutdown(ctx)
	return errors.Join(httpErr, schedErr)
}

type acceptResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req QuizRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := validateStartURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if failure := s.authenticate(req.Secret); failure != nil {
		s.logger.Warn("quiz request rejected",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("email", req.Email),
			zap.Error(failure))
		writeError(w, failure.status, failure.message)
		return
	}

	if s.cfg.Server.DisableSolver {
		s.logger.Info("solver disabled, request acknowledged only", zap.String("url", req.URL))
		writeJSON(w, http.StatusOK, acceptResponse{Status: "accepted", Message: "Solving started"})
		return
	}

	startURL := req.URL
	err := s.scheduler.Schedule(func(ctx context.Context) {
		s.runner.Run(ctx, startURL)
	})
	if err != nil {
		s.logger.Warn("quiz request not scheduled", zap.String("url", startURL), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "solver busy")
		return
	}

	s.logger.Info("quiz accepted",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("url", startURL),
		zap.Int("extra_fields", len(req.Extra)))
	writeJSON(w, http.StatusOK, acceptResponse{Status: "accepted", Message: "Solving started"})
}

// authFailure is a model.ErrAuth carrying the response shown to the caller
type authFailure struct {
	status  int
	message string
}

func (e *authFailure) Error() string { return model.ErrAuth.Error() + ": " + e.message }

func (e *authFailure) Unwrap() error { return model.ErrAuth }

// authenticate compares secret with the configured one in constant time
func (s *Server) authenticate(secret string) *authFailure {
	if secret == "" {
		return &authFailure{status: http.StatusBadRequest, message: "Missing secret"}
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.Quiz.Secret)) != 1 {
		return &authFailure{status: http.StatusForbidden, message: "Invalid secret"}
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, errorResponse{Status: "error", Reason: reason})
}
