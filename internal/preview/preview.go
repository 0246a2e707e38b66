// Package preview serves a locally built site and rebuilds it when the
// sources change.
package preview

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/ftdocs/internal/build"
	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
	"git.home.luguber.info/inful/ftdocs/internal/metrics"
)

// DefaultDebounce is the quiet period before a rebuild starts.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a preview server.
type Options struct {
	// ConfigPath is re-read on every rebuild so configuration edits apply.
	ConfigPath string
	// SiteDir receives the build output. Empty means a temporary directory
	// removed on shutdown.
	SiteDir string
	// Addr is the listen address, used when Listener is nil.
	Addr     string
	Listener net.Listener
	Debounce time.Duration
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Server is a running preview.
type Server struct {
	opts    Options
	hub     *Hub
	log     *slog.Logger
	siteDir string
	tempDir bool

	mu       sync.RWMutex
	lastErr  error
	lastHash string
}

// New validates the options and prepares the output directory.
func New(opts Options) (*Server, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{opts: opts, hub: NewHub(), log: opts.Logger, siteDir: opts.SiteDir}
	if s.siteDir == "" {
		dir, err := os.MkdirTemp("", "ftdocs-serve-")
		if err != nil {
			return nil, errors.FileSystemError("failed to create preview directory").WithCause(err).Build()
		}
		s.siteDir, s.tempDir = dir, true
	}
	return s, nil
}

// SiteDir returns the directory being served.
func (s *Server) SiteDir() string { return s.siteDir }

// Rebuild builds the site once. A failed build keeps the previous output and
// is reported to the caller; browsers are only notified on success.
func (s *Server) Rebuild(ctx context.Context) error {
	cfg, err := config.Load(s.opts.ConfigPath)
	if err != nil {
		s.setResult("", err)
		return err
	}
	strict := false
	b, err := build.New(build.Options{
		Config:     cfg,
		ConfigFile: s.opts.ConfigPath,
		SiteDir:    s.siteDir,
		Strict:     &strict,
		LiveReload: true,
		Recorder:   s.opts.Recorder,
		Logger:     s.log,
	})
	if err != nil {
		s.setResult("", err)
		return err
	}
	report, err := b.Build(ctx)
	if err != nil {
		s.setResult("", err)
		return err
	}
	s.setResult(report.SiteHash, nil)
	s.hub.Broadcast(report.SiteHash)
	return nil
}

func (s *Server) setResult(hash string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if hash != "" {
		s.lastHash = hash
	}
}

// Status returns the hash of the last good build and the last build error.
func (s *Server) Status() (hash string, lastErr error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastHash, s.lastErr
}

// Handler serves the site, the livereload stream and the 404 page.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/__livereload", s.hub)
	files := http.FileServer(http.Dir(s.siteDir))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		for _, seg := range strings.Split(clean, "/") {
			if strings.HasPrefix(seg, ".") {
				s.notFound(w)
				return
			}
		}
		if _, err := os.Stat(filepath.Join(s.siteDir, filepath.FromSlash(clean))); err != nil {
			s.notFound(w)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
	return mux
}

func (s *Server) notFound(w http.ResponseWriter) {
	// #nosec G304 -- fixed name inside the preview directory.
	page, err := os.ReadFile(filepath.Join(s.siteDir, "404.html"))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if err == nil {
		_, _ = w.Write(page)
	}
}

// Run builds, serves and watches until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if s.tempDir {
		defer func() {
			if err := os.RemoveAll(s.siteDir); err != nil {
				s.log.Warn("Failed to remove preview directory", logfields.Path(s.siteDir), logfields.Error(err))
			}
		}()
	}

	if err := s.Rebuild(ctx); err != nil {
		s.log.Error("Initial build failed; serving last output", logfields.Error(err))
	}
	cfg, err := config.Load(s.opts.ConfigPath)
	if err != nil {
		return err
	}

	watcher, err := newWatcher(cfg.DocsPath(), s.opts.ConfigPath)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	ln := s.opts.Listener
	if ln == nil {
		ln, err = net.Listen("tcp", s.opts.Addr)
		if err != nil {
			return errors.WrapError(err, errors.CategoryRuntime, "failed to listen").
				WithContext("addr", s.opts.Addr).Build()
		}
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()
	s.log.Info("Serving preview", logfields.URL("http://"+ln.Addr().String()+"/"), logfields.Path(s.siteDir))

	rebuildReq := make(chan struct{}, 1)
	debouncer := newDebouncer(s.opts.Debounce, func() {
		select {
		case rebuildReq <- struct{}{}:
		default:
		}
	})
	defer debouncer.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				s.log.Info("Change detected; rebuilding site")
				if err := s.Rebuild(ctx); err != nil && ctx.Err() == nil {
					s.log.Warn("Rebuild failed; keeping last good output", logfields.Error(err))
				}
			}
		}
	}()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err := <-serveErr:
			if !stderrors.Is(err, http.ErrServerClosed) {
				runErr = errors.WrapError(err, errors.CategoryRuntime, "preview server failed").Build()
			}
			break loop
		case ev, ok := <-watcher.Events:
			if !ok {
				break loop
			}
			if watcher.handle(ev) {
				debouncer.Trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				break loop
			}
			s.log.Warn("Watcher error", logfields.Error(err))
		}
	}

	s.log.Info("Shutting down preview server")
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("Preview server shutdown error", logfields.Error(err))
	}
	debouncer.Stop()
	wg.Wait()
	return runErr
}
