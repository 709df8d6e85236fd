package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/FocuswithJustin/litbook/internal/logging"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// Server is the litbook HTTP server.
type Server struct {
	cfg     Config
	handler http.Handler
}

// New builds the handler and its middleware chain: request logging,
// timing, security headers, then rate limiting and CORS when configured.
func New(cfg Config, cors CORSConfig) (*Server, error) {
	h, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}

	var next http.Handler = h
	if h.cfg.TLD != "" {
		next = http.StripPrefix(h.cfg.TLD, next)
	}
	if len(cors.AllowedOrigins) > 0 {
		next = CORSMiddlewareWithConfig(cors, next)
	}
	if h.cfg.RateLimit.RequestsPerMinute > 0 {
		next = NewRateLimiter(h.cfg.RateLimit).Middleware(next)
	}
	next = logging.CombinedMiddleware(TimingMiddleware(SecurityHeadersMiddleware(next)))

	return &Server{cfg: h.cfg, handler: next}, nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.ServerStartup("litbook", "http", ln.Addr().String(),
		"store", AbsPath(s.cfg.Store.Root),
		"books", s.cfg.Registry.Len(),
		"tld", s.cfg.TLD)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.Info("server_stopped", "addr", ln.Addr().String())
	return nil
}
