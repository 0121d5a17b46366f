package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"moneytracker/internal/log"
	"moneytracker/internal/middleware/ratelimit"
	"moneytracker/internal/middleware/security"
	"moneytracker/internal/middleware/trace"
	"moneytracker/internal/services"
	appweb "moneytracker/web"
)

// Options configure a Server. Zero values fall back to defaults.
type Options struct {
	Logger    *log.Logger
	RateLimit ratelimit.Config
	// QuoteModel pre-fills the model field of the quote form.
	QuoteModel string
	// ServerQuoteKey reports whether a server side OpenAI key is configured,
	// making the key field of the quote form optional.
	ServerQuoteKey bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

type Server struct {
	http.Server
	svc        *services.SpendingService
	templates  *template.Template
	logger     *log.Logger
	structured *log.StructuredLogger
	limiter    *ratelimit.Limiter
	tracer     *trace.Tracer
	proxies    *security.ProxyTrust
	opts       Options
	started    time.Time
}

// NewServer wires routes and middleware around svc. Template parse errors
// are logged and reported by /readyz rather than failing startup.
func NewServer(addr string, svc *services.SpendingService, opts Options) (*Server, error) {
	if svc == nil {
		return nil, errors.New("http server: nil spending service")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		// covers the quote call
		opts.WriteTimeout = 60 * time.Second
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:        svc,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
		limiter:    ratelimit.NewLimiter(opts.RateLimit),
		proxies:    security.DefaultProxyTrust(),
		opts:       opts,
		started:    time.Now(),
	}
	s.tracer = trace.New(logger, s.proxies.ClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.WarnContext(context.Background(), "Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssets(3600)(static))
	} else {
		logger.WarnContext(context.Background(), "Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/spending", s.handleSaveSpending)
	mux.HandleFunc("/ui/preview", s.handlePreview)
	mux.HandleFunc("/ui/calendar", s.handleCalendar)
	mux.HandleFunc("/ui/quote", s.handleQuote)
	mux.HandleFunc("/api/trend", s.handleTrend)
	mux.HandleFunc("/export.xlsx", s.handleExport(exportXLSX))
	mux.HandleFunc("/export.csv", s.handleExport(exportCSV))

	limit := s.limiter.Middleware(s.proxies.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorPartial(http.StatusTooManyRequests, "Too many requests, please slow down").Write(w)
	}, http.MethodPost)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = s.tracer.Wrap(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       opts.ReadTimeout,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s, nil
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	if err := s.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
