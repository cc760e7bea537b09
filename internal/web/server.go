// Package web serves the read-only PR workflow dashboard and its JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/prflow/internal/present"
	"github.com/lucasnoah/prflow/internal/snapshot"
	"github.com/lucasnoah/prflow/internal/workflow"
)

//go:embed templates
var templateFS embed.FS

var funcMap = template.FuncMap{
	"badgeClass": func(status workflow.OverallStatus) string {
		return "badge badge-" + string(status)
	},
	"segClass": func(status workflow.StageStatus) string {
		return "seg seg-" + strings.ReplaceAll(string(status), "_", "-")
	},
	"ciClass": func(status workflow.CIStatus) string {
		return "ci ci-" + string(status)
	},
	"relTime": func(ts string) string {
		return present.RelTime(ts, time.Now())
	},
	"formatTime": present.FormatTime,
}

// Provider supplies the snapshot the UI renders. *refresh.Refresher
// implements it.
type Provider interface {
	Latest() (snapshot.Snapshot, bool)
	LastError() error
	LastAttempt() time.Time
	Trigger()
}

// Server is the read-only web UI server.
type Server struct {
	provider Provider
	port     int
	logger   *zap.Logger

	// streamInterval is how often /events checks for a new snapshot.
	streamInterval time.Duration

	dashboardTmpl *template.Template
	fixTmpl       *template.Template
}

// NewServer creates a Server with parsed templates.
func NewServer(provider Provider, port int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		provider:       provider,
		port:           port,
		logger:         logger,
		streamInterval: 2 * time.Second,
		dashboardTmpl:  mustParseTmpl("base.html", "dashboard.html"),
		fixTmpl:        mustParseTmpl("base.html", "fix.html"),
	}
}

func mustParseTmpl(names ...string) *template.Template {
	patterns := make([]string, len(names))
	for i, n := range names {
		patterns[i] = "templates/" + n
	}
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, patterns...))
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			s.handleDashboard(w, r)
		case strings.HasPrefix(r.URL.Path, "/fix/"):
			s.handleFixDetail(w, r, strings.Trim(strings.TrimPrefix(r.URL.Path, "/fix/"), "/"))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/api/fixes", s.handleAPIFixes)
	mux.HandleFunc("/api/summary", s.handleAPISummary)
	mux.HandleFunc("/api/stages", s.handleAPIStages)
	mux.HandleFunc("/refresh", s.handleRefresh)
	mux.HandleFunc("/events", s.handleEvents)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("prflow UI listening", zap.String("url", fmt.Sprintf("http://localhost:%d", s.port)))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
