package ipc

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cordx56/autosave/internal/config"
	"github.com/cordx56/autosave/internal/daemonstate"
	"github.com/cordx56/autosave/internal/fileutil"
)

// killGrace is how long the server waits after a kill request before
// shutting the listener down, giving the response time to flush.
const killGrace = time.Second

// Server is the daemon's control-socket HTTP server.
type Server struct {
	watchList *daemonstate.WatchList
	httpSrv   *http.Server
	listener  net.Listener
	killCh    chan struct{}
}

// Listen binds the control socket at sockPath, removing a stale socket
// file left behind by a crashed daemon.
func Listen(sockPath string, wl *daemonstate.WatchList) (*Server, error) {
	if err := os.RemoveAll(sockPath); err != nil {
		return nil, err
	}
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		watchList: wl,
		listener:  ln,
		killCh:    make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", s.handleWatch)
	mux.HandleFunc("/kill", s.handleKill)
	s.httpSrv = &http.Server{Handler: mux}
	return s, nil
}

// Serve runs the accept loop until Kill is requested or ctx is done,
// then closes the listener after the grace period.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpSrv.Serve(s.listener) }()

	select {
	case <-ctx.Done():
	case <-s.killCh:
		time.Sleep(killGrace)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), killGrace)
	defer cancel()
	_ = s.httpSrv.Shutdown(shutdownCtx)
	_ = os.RemoveAll(s.listener.Addr().String())

	err := <-errCh
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, successEnvelope(watchListResponse{Paths: s.watchList.Paths()}))
	case http.MethodPost:
		var req watchMutationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, failedEnvelope(err))
			return
		}
		if err := s.applyMutation(req); err != nil {
			writeJSON(w, failedEnvelope(err))
			return
		}
		writeJSON(w, successEnvelope(struct{}{}))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) applyMutation(req watchMutationRequest) error {
	switch req.Action {
	case "add":
		var cfg config.Config
		if len(req.Config) > 0 {
			if err := json.Unmarshal(req.Config, &cfg); err != nil {
				return err
			}
		}
		return s.watchList.AppendWatchDir(req.Path, cfg)
	case "remove":
		return s.watchList.RemoveWatchDir(req.Path)
	default:
		return &errNonSuccess{Message: "unknown action: " + req.Action}
	}
}

func (s *Server) handleKill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, successEnvelope(struct{}{}))
	select {
	case <-s.killCh:
	default:
		close(s.killCh)
	}
}

func writeJSON(w http.ResponseWriter, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(env); err != nil {
		fileutil.LogError("writing ipc response: %v", err)
	}
}
