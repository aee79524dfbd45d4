// Package httpapi is the thin HTTP surface: it validates JSON shape,
// delegates to the watchtower core and the producer service, and maps
// errors to status codes. It carries no business logic of its own.
package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/obycode/stackflow-sub001/internal/producer"
	"github.com/obycode/stackflow-sub001/internal/watchtower"
	"github.com/obycode/stackflow-sub001/internal/wtlog"
)

// Server wraps an http.Server with the same atomic started/shutdown
// guard the daemon's own rpcServer uses, so Start/Stop are idempotent
// and safe to call from the bootstrap goroutine and a signal handler.
type Server struct {
	started  int32
	shutdown int32

	httpServer *http.Server
}

// New builds the router and binds it to addr without starting to accept
// connections yet; call Start to begin serving.
func New(addr string, wt *watchtower.Watchtower, p *producer.Producer) *Server {
	h := &handlers{wt: wt, producer: p}

	r := mux.NewRouter()
	r.Use(loggingMiddleware)
	registerRoutes(r, h)

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	if atomic.AddInt32(&s.started, 1) != 1 {
		return nil
	}

	wtlog.HTPLog.Infof("addr=%s result=listening", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			wtlog.HTPLog.Errorf("addr=%s result=listen-failed error=%v", s.httpServer.Addr, err)
		}
	}()
	return nil
}

func (s *Server) Stop() error {
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wtlog.HTPLog.Debugf("method=%s path=%s result=received", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
