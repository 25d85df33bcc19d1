package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/master/service"
	"github.com/flightlab-io/flightlab/internal/pkg/metrics"
	"github.com/flightlab-io/flightlab/pkg/log"
	"github.com/flightlab-io/flightlab/pkg/options"
)

const acknowledgement = "OK"

// Server is the master's HTTP façade.
type Server struct {
	server  *http.Server
	svc     *service.ControlService
	hub     *hub
	options *options.HttpOptions
	log     log.Logger
}

func NewServer(opts *options.HttpOptions, svc *service.ControlService, l log.Logger) *Server {
	s := &Server{
		svc:     svc,
		hub:     newHub(l.WithName("ws")),
		options: opts,
		log:     l,
	}
	svc.OnStateChanged(func(state v1.SystemState) {
		s.hub.broadcast(stateMessage(state))
	})

	s.server = &http.Server{
		Addr:    opts.Addr,
		Handler: s.Handler(),
	}
	s.server.RegisterOnShutdown(s.hub.close)
	return s
}

// Handler returns the routed façade.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(cors)

	r.HandleFunc("/system/{action:on|off|restart}", s.system).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/exit", s.command(v1.CommandExit)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/debug", s.command(v1.CommandDebug)).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/config", s.config).Methods(http.MethodGet)
	r.HandleFunc("/state", s.state).Methods(http.MethodGet)
	r.HandleFunc("/ws/status", s.watch).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve handles requests on lis until ctx is done.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.log.Info("Starting HTTP Server", "addr", lis.Addr().String())

	feed, cancel := s.svc.Subscribe()
	defer cancel()
	go s.hub.pump(ctx, feed)

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

var systemCommands = map[string]v1.Command{
	"on":      v1.CommandStart,
	"off":     v1.CommandStop,
	"restart": v1.CommandRestart,
}

func (s *Server) system(w http.ResponseWriter, r *http.Request) {
	s.command(systemCommands[mux.Vars(r)["action"]])(w, r)
}

func (s *Server) command(cmd v1.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.log.Info("Command requested over HTTP", "command", cmd, "remote", r.RemoteAddr)
		s.svc.SendCommand(cmd)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(acknowledgement))
	}
}

func (s *Server) config(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.svc.Config())
}

func (s *Server) state(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, v1.SystemStateResponse{State: s.svc.State()})
}

func (s *Server) watch(w http.ResponseWriter, r *http.Request) {
	s.hub.serve(w, r, s.svc.State())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}
