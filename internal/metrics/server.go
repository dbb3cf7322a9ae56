package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Server exposes /metrics and /healthz. /healthz answers 503 while any
// registered check fails.
type Server struct {
	addr string
	srv  *http.Server
	log  *logger.Logger

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func NewServer(addr string, m *Metrics, log *logger.Logger) *Server {
	s := &Server{
		addr:   addr,
		log:    log,
		checks: map[string]CheckFunc{},
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.healthz)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// AddCheck registers a named dependency check for /healthz.
func (s *Server) AddCheck(name string, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = fn
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	checks := make(map[string]CheckFunc, len(s.checks))
	for name, fn := range s.checks {
		names = append(names, name)
		checks[name] = fn
	}
	s.mu.RUnlock()
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var failed []string
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", name, err))
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	if len(failed) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		for _, line := range failed {
			_, _ = fmt.Fprintln(w, line)
		}
		return
	}
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves in the background until Stop.
func (s *Server) Start() {
	go func() {
		s.log.WithComponent("metrics").WithField("addr", s.addr).Info("metrics server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithComponent("metrics").WithError(err).Error("metrics server stopped")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
