package report

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browserbase-e2e/internal/ratelimit"
	"github.com/shehryarbajwa/browserbase-e2e/pkg/models"
)

// Server exposes the results directory and the generated HTML report over HTTP.
type Server struct {
	results   *ResultWriter
	reportDir string
	limiter   *ratelimit.Limiter
	logger    *zap.Logger
}

// NewServer creates a report server. limiter may be nil.
func NewServer(results *ResultWriter, reportDir string, limiter *ratelimit.Limiter, logger *zap.Logger) *Server {
	return &Server{
		results:   results,
		reportDir: reportDir,
		limiter:   limiter,
		logger:    logger,
	}
}

// Router configures all HTTP routes
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.Health).Methods("GET")

	api := r.PathPrefix("/v1").Subrouter()
	if s.limiter != nil {
		api.Use(rateLimitMiddleware(s.limiter))
	}
	api.HandleFunc("/results", s.ListResults).Methods("GET", "OPTIONS")
	api.HandleFunc("/results/{id}", s.GetResult).Methods("GET", "OPTIONS")

	r.PathPrefix("/results/").Handler(http.StripPrefix("/results/", http.FileServer(http.Dir(s.results.Dir()))))
	r.PathPrefix("/report/").Handler(http.StripPrefix("/report/", http.FileServer(http.Dir(s.reportDir))))

	r.Use(s.logMiddleware)
	r.Use(corsMiddleware)

	return r
}

// Health handles GET /healthz
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListResults handles GET /v1/results, optionally filtered by ?status=
func (s *Server) ListResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.results.List()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := []models.Result{}
		for _, res := range results {
			if string(res.Status) == status {
				filtered = append(filtered, res)
			}
		}
		results = filtered
	}

	writeJSONResponse(w, http.StatusOK, results)
}

// GetResult handles GET /v1/results/{id}
func (s *Server) GetResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	res, err := s.results.Get(id)
	if errors.Is(err, ErrResultNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, res)
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

// rateLimitMiddleware limits API calls per client address
func rateLimitMiddleware(limiter *ratelimit.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				client = r.RemoteAddr
			}

			if !limiter.Allow(client) {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
				w.Header().Set("X-RateLimit-Remaining", "0")
				writeJSONResponse(w, http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens(client))))
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
