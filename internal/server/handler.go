package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/FocuswithJustin/litbook/core/books"
	"github.com/FocuswithJustin/litbook/core/cache"
	apperrors "github.com/FocuswithJustin/litbook/core/errors"
	"github.com/FocuswithJustin/litbook/core/ref"
	"github.com/FocuswithJustin/litbook/core/verse"
	"github.com/FocuswithJustin/litbook/internal/logging"
)

//go:embed templates/*.html
var templatesFS embed.FS

const allowedMethods = "GET, POST"

// Config holds handler configuration.
type Config struct {
	Registry *books.Registry
	Store    *verse.Store

	// TLD is the path the handler is mounted under, for example "/bible".
	// Canonical redirects point to TLD + "/" + canonical reference.
	TLD string

	// IndexURL is where a request with no reference is sent. Without one
	// such requests are 404.
	IndexURL string

	// Title is the page title. The book name is used when empty.
	Title string

	// CacheBytes bounds the rendered pages kept in memory, keyed by
	// canonical reference. Zero disables the cache.
	CacheBytes int64

	// RateLimit limits requests per client. Applied by New.
	RateLimit RateLimitConfig
}

// Handler resolves the request path as a reference and renders the
// passage as HTML. It expects the TLD to be stripped from the path.
type Handler struct {
	cfg    Config
	parser *ref.Parser
	tmpl   *template.Template
	pages  *cache.BoundedCache[string, []byte]
}

type passagePage struct {
	Title    string
	Book     string
	Chapters []*verse.Chapter
}

// NewHandler parses the page templates and returns a handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Registry == nil || cfg.Store == nil {
		return nil, errors.New("server: registry and store are required")
	}
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	cfg.TLD = strings.TrimSuffix(cfg.TLD, "/")
	h := &Handler{cfg: cfg, parser: ref.NewParser(cfg.Registry), tmpl: tmpl}
	if cfg.CacheBytes > 0 {
		h.pages = cache.NewBoundedCache[string, []byte](cache.Config{}, cfg.CacheBytes,
			func(b []byte) int64 { return int64(len(b)) })
	}
	return h, nil
}

// CacheStats reports page cache statistics. It is zero when the cache is
// disabled.
func (h *Handler) CacheStats() cache.Stats {
	if h.pages == nil {
		return cache.Stats{}
	}
	return h.pages.Stats()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
	case http.MethodOptions:
		w.Header().Set("Allow", allowedMethods)
		w.WriteHeader(http.StatusOK)
		return
	default:
		w.Header().Set("Allow", allowedMethods)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	raw := strings.TrimPrefix(r.URL.Path, "/")
	if raw == "" {
		if h.cfg.IndexURL == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Location", h.cfg.IndexURL)
		w.WriteHeader(http.StatusMovedPermanently)
		return
	}

	res, err := h.parser.Parse(raw)
	if err != nil {
		logging.DebugContext(ctx, "lookup_failed", "raw", raw, "error", err.Error())
		http.NotFound(w, r)
		return
	}
	canonical := res.Canonical()
	logging.LookupEvent(ctx, raw, canonical, res.Tier.String(), res.Mismatch)

	if res.Mismatch {
		target := &url.URL{Path: h.cfg.TLD + "/" + canonical}
		w.Header().Set("Location", target.EscapedPath())
		w.WriteHeader(http.StatusMovedPermanently)
		return
	}

	body, ok := h.cachedPage(canonical)
	if !ok {
		var status int
		body, status = h.render(ctx, res.Range)
		if status != http.StatusOK {
			if status == http.StatusNotFound {
				http.NotFound(w, r)
			} else if status != 0 {
				http.Error(w, "internal server error", status)
			}
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Write(body)
}

func (h *Handler) cachedPage(canonical string) ([]byte, bool) {
	if h.pages == nil {
		return nil, false
	}
	return h.pages.Get(canonical)
}

// render reads and renders the passage for rng. A zero status means the
// request was cancelled and nothing should be written. Only complete
// passages are cached.
func (h *Handler) render(ctx context.Context, rng ref.Range) ([]byte, int) {
	canonical := rng.Canonical()
	p, err := h.cfg.Store.Passage(ctx, rng)
	if err != nil {
		// Client went away.
		return nil, 0
	}
	if p.Corrupt() {
		path := h.cfg.Store.Root
		var ce *apperrors.CorruptError
		if errors.As(p.Stopped, &ce) {
			path = ce.Path
		}
		logging.StoreError(ctx, path, "show_chapter", p.Stopped, "reference", canonical)
	}
	if p.Empty() {
		return nil, http.StatusNotFound
	}

	title := h.cfg.Title
	if title == "" {
		title = rng.Book
	}
	var buf bytes.Buffer
	page := passagePage{Title: title, Book: rng.Book, Chapters: p.Chapters}
	if err := h.tmpl.ExecuteTemplate(&buf, "passage.html", page); err != nil {
		logging.ErrorContext(ctx, "render_failed", "reference", canonical, "error", err.Error())
		return nil, http.StatusInternalServerError
	}

	body := buf.Bytes()
	if h.pages != nil && !p.Corrupt() {
		h.pages.Put(canonical, body)
	}
	return body, http.StatusOK
}
