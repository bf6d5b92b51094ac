package wire

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"
)

// Server is a JSON-RPC 2.0 HTTP server: explicit read/write/idle
// timeouts, a single POST endpoint, optional bearer-token auth, and
// optional mTLS when tlsConfig is non-nil.
type Server struct {
	handler   *Handler
	addr      string
	authToken string // empty → no auth required
	tlsConfig *tls.Config
	srv       *http.Server
	ln        net.Listener
}

// NewServer creates a Server on addr. tlsConfig may be nil, in which case
// Start serves plain TCP; otherwise every connection is upgraded to mTLS
// per tlsConfig before HTTP framing begins.
func NewServer(addr string, handler *Handler, authToken string, tlsConfig *tls.Config) *Server {
	s := &Server{handler: handler, addr: addr, authToken: authToken, tlsConfig: tlsConfig}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveHTTP)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start binds the port synchronously, then serves in the background. When
// the Server was constructed with a non-nil tlsConfig, connections are
// served over ServeTLS using the certificate/key already loaded into that
// config, rather than path arguments.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		var serveErr error
		if s.tlsConfig != nil {
			serveErr = s.srv.ServeTLS(ln, "", "")
		} else {
			serveErr = s.srv.Serve(ln)
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			log.Printf("[wire] server error: %v", serveErr)
		}
	}()
	return nil
}

// Addr returns the listener's bound address. Useful when started on ":0".
func (s *Server) Addr() net.Addr {
	if s.ln != nil {
		return s.ln.Addr()
	}
	return nil
}

// Stop gracefully shuts the server down, waiting up to 5s for in-flight
// requests.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.authToken != "" {
		if r.Header.Get("Authorization") != "Bearer "+s.authToken {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, errResponse(nil, CodeUnauthorized, "unauthorized"))
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1*1024*1024)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, errResponse(nil, CodeParseError, err.Error()))
		return
	}
	if req.JSONRPC != "2.0" {
		writeJSON(w, errResponse(req.ID, CodeInvalidRequest, "jsonrpc must be '2.0'"))
		return
	}

	writeJSON(w, s.handler.Dispatch(req))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[wire] write response: %v", err)
	}
}
