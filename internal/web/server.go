package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/cellarfront/internal/quiz"
	"github.com/conorfennell/cellarfront/internal/stock"
	"github.com/conorfennell/cellarfront/internal/storage"
	"github.com/conorfennell/cellarfront/internal/view"
	"github.com/conorfennell/cellarfront/internal/winedraft"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

const sessionCookie = "cellarfront_session"

// Backend is the wine API as the pages use it.
type Backend interface {
	quiz.Backend
	winedraft.Backend
	stock.Backend
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	api       Backend
	db        *storage.DB
	router    *http.ServeMux
	handler   http.Handler
	templates *template.Template
	formOpts  []winedraft.Option

	mu   sync.Mutex
	busy map[string]*sessionLock
}

// sessionLock serializes the requests of one session. refs counts the
// requests holding or waiting on it; the entry is dropped at zero.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewServer creates and configures a new server. Controller state is kept
// per browser session in db.
func NewServer(api Backend, db *storage.DB, formOpts ...winedraft.Option) (*Server, error) {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		api:       api,
		db:        db,
		router:    http.NewServeMux(),
		templates: tpl,
		formOpts:  formOpts,
		busy:      make(map[string]*sessionLock),
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	s.handler = logRequests(s.withSession(s.router))
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to create sub-filesystem for static assets: %w", err)
	}
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Quiz
	s.router.HandleFunc("GET /{$}", s.serialize(s.handleQuizPage))
	s.router.HandleFunc("POST /quiz/select", s.guard(s.handleQuizSelect))
	s.router.HandleFunc("POST /quiz/next", s.guard(s.handleQuizNext))
	s.router.HandleFunc("POST /quiz/prev", s.guard(s.handleQuizPrev))
	s.router.HandleFunc("POST /quiz/restart", s.guard(s.handleQuizRestart))

	// Admin: create form and stock list
	s.router.HandleFunc("GET /admin", s.serialize(s.handleAdminPage))
	s.router.HandleFunc("POST /admin/new/{action}", s.guard(s.handleCreateAction))
	s.router.HandleFunc("POST /admin/stock/search", s.guard(s.handleStockSearch))
	s.router.HandleFunc("POST /admin/stock/prev", s.guard(s.handleStockPrev))
	s.router.HandleFunc("POST /admin/stock/next", s.guard(s.handleStockNext))
	s.router.HandleFunc("POST /admin/stock/{id}/delete", s.guard(s.handleStockDelete))

	// Admin: edit form
	s.router.HandleFunc("GET /admin/wine/{id}", s.serialize(s.handleEditPage))
	s.router.HandleFunc("POST /admin/wine/{id}/{action}", s.guard(s.handleEditAction))
	return nil
}

type sessionKey struct{}

// withSession makes sure every request carries a session id cookie.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}

func (s *Server) acquire(id string) *sessionLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.busy[id]
	if !ok {
		l = &sessionLock{}
		s.busy[id] = l
	}
	l.refs++
	return l
}

func (s *Server) release(id string, l *sessionLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.busy, id)
	}
}

// guard lets one action per session run at a time. A second request while
// one is in flight is turned away with the busy label.
func (s *Server) guard(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)
		l := s.acquire(id)
		defer s.release(id, l)

		if !l.mu.TryLock() {
			http.Error(w, view.BusyLabel, http.StatusConflict)
			return
		}
		defer l.mu.Unlock()
		h(w, r)
	}
}

// serialize runs h under the session lock, waiting for an action in flight
// to finish. Page loads read and write the same state as the actions.
func (s *Server) serialize(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)
		l := s.acquire(id)
		defer s.release(id, l)

		l.mu.Lock()
		defer l.mu.Unlock()
		h(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// render executes a template into a buffer first so a failing template
// never leaves half a page behind.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Rendering template failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, kind storage.Kind, state any) bool {
	if err := s.db.SaveState(sessionID(r), kind, state); err != nil {
		slog.Error("Saving session state failed", "kind", kind, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	}
	return true
}
