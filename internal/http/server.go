package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"fintrack/internal/budget"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	appweb "fintrack/web"
)

// staticMaxAge is the Cache-Control max-age for embedded assets, in seconds.
const staticMaxAge = 3600

type Server struct {
	http.Server
	templates *template.Template
	tracker   *services.Tracker
	budgets   *budget.Book
	logger    *applog.Logger
	started   time.Time
	limiter   *ratelimit.Limiter

	shutdownOnce sync.Once
}

// Option customizes a Server.
type Option func(*serverOptions)

type serverOptions struct {
	writesPerMinute int
}

// WithRateLimit caps form submissions per client and minute; 0 disables the limit.
func WithRateLimit(perMinute int) Option {
	return func(o *serverOptions) { o.writesPerMinute = perMinute }
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, tracker *services.Tracker, budgets *budget.Book, logger *applog.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	o := serverOptions{writesPerMinute: ratelimit.DefaultConfig().RequestsPerMinute}
	for _, opt := range opts {
		opt(&o)
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates: t,
		tracker:   tracker,
		budgets:   budgets,
		logger:    logger.WithComponent(applog.ComponentHTTP),
		started:   time.Now(),
	}

	clientIP := security.DefaultClientIPResolver().ClientIP

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(trace.NewMiddleware(s.logger, clientIP).Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	if o.writesPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: o.writesPerMinute})
		r.Use(s.limiter.Middleware(clientIP, func(w http.ResponseWriter, _ *http.Request) {
			WarningResponse(http.StatusTooManyRequests, "Too many requests. Please wait a moment.").Write(w)
		}))
	}

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	r.With(security.StaticAssetMiddleware(staticMaxAge)).Handle("/static/*", static)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Get("/", s.handleIndex)
	r.Post("/transactions", s.handleCreateTransaction)
	r.Delete("/transactions/{id}", s.handleDeleteTransaction)
	r.Post("/transactions/{id}/delete", s.handleDeleteTransaction)
	r.Post("/budgets", s.handleUpdateBudgets)

	// UI partials
	r.Get("/ui/report", s.handleReport)

	r.Get("/export/transactions.csv", s.handleExportCSV)
	r.Get("/export/transactions.xlsx", s.handleExportXLSX)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
