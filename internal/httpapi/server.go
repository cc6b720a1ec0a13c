package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	accountd "github.com/aonyx-labs/accountd"
	"github.com/aonyx-labs/accountd/middleware"
)

// Config carries the server-side knobs the handlers need.
type Config struct {
	// Cookie lifetimes; normally mirrors the engine token TTLs.
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// SecureCookies marks the auth cookies Secure. Off for local runs.
	SecureCookies bool
}

// Server wires the engine into a gorilla/mux router.
type Server struct {
	engine *accountd.Engine
	log    *slog.Logger
	cfg    Config
}

func NewServer(engine *accountd.Engine, log *slog.Logger, cfg Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, log: log, cfg: cfg}
}

// Router builds the route table. Mounted once at startup.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.stampClientIP)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/accounts").Subrouter()
	api.HandleFunc("/sign-up", s.handleSignUp).Methods(http.MethodPost)
	api.HandleFunc("/sign-in", s.handleSignIn).Methods(http.MethodPost)
	api.HandleFunc("/sign-out", s.handleSignOut).Methods(http.MethodPost)

	guard := middleware.Guard(s.engine)
	api.Handle("/users",
		guard(middleware.RequireAdmin(http.HandlerFunc(s.handleListUsers)))).Methods(http.MethodGet)
	api.Handle("/users/{user_id}",
		guard(middleware.RequireSelf("user_id")(http.HandlerFunc(s.handleGetUser)))).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// stampClientIP makes the caller address visible to the engine's sign-in
// throttle.
func (s *Server) stampClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(accountd.WithClientIP(r.Context(), clientIP(r))))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
