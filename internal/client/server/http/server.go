package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/pkg/metrics"
	"github.com/flightlab-io/flightlab/pkg/log"
	"github.com/flightlab-io/flightlab/pkg/options"
)

// StatusSource reports the local components.
type StatusSource interface {
	MachineStatus() *v1.MachineStatus
}

// Server is the client's local listener.
type Server struct {
	server  *http.Server
	src     StatusSource
	options *options.HttpOptions
	log     log.Logger
}

func NewServer(opts *options.HttpOptions, src StatusSource, l log.Logger) *Server {
	s := &Server{
		src:     src,
		options: opts,
		log:     l,
	}
	s.server = &http.Server{
		Addr:    opts.Addr,
		Handler: s.Handler(),
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.HandleFunc("/components", s.components).Methods(http.MethodGet)
	return r
}

func (s *Server) components(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(s.src.MachineStatus()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}
	s.log.Info("Starting HTTP Server", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.Timeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
