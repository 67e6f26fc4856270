package server

// Package server exposes thread persistence over HTTP. It is plumbing
// around a ThreadStore: load, save, list, delete, plus a convenience
// endpoint that derives the visible path server-side. The branching logic
// itself lives in pkg/conversation.

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/arbor/pkg/events"
	"github.com/go-go-golems/arbor/pkg/store"
)

type Server struct {
	store     store.ThreadStore
	publisher *events.PublisherManager
	logger    zerolog.Logger
}

type ServerOption func(*Server)

func WithPublisher(publisher *events.PublisherManager) ServerOption {
	return func(s *Server) {
		s.publisher = publisher
	}
}

func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(threadStore store.ThreadStore, options ...ServerOption) *Server {
	ret := &Server{
		store:  threadStore,
		logger: log.Logger,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/threads", s.listThreads).Methods(http.MethodGet)
	api.HandleFunc("/threads/last", s.getLastThread).Methods(http.MethodGet)
	api.HandleFunc("/threads/{id}", s.getThread).Methods(http.MethodGet)
	api.HandleFunc("/threads/{id}", s.putThread).Methods(http.MethodPut)
	api.HandleFunc("/threads/{id}", s.deleteThread).Methods(http.MethodDelete)
	api.HandleFunc("/threads/{id}/path", s.getThreadPath).Methods(http.MethodGet)

	r.Use(s.requestLogging)
	return r
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("handled request")
	})
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.logger.Info().Str("addr", addr).Msg("thread service listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func (s *Server) publish(ev events.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishOrLog(ev)
}
