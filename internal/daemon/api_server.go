package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tfsrelay/internal/config"
	"tfsrelay/internal/logging"
	"tfsrelay/internal/services"
)

const (
	// SOAPPath is where TFS SOAP subscriptions deliver Notify calls.
	SOAPPath = "/services/WorkItemChanged.asmx"
	// EventsPath accepts raw WorkItemChangedEvent XML.
	EventsPath = "/api/events"
	// HealthPath reports liveness.
	HealthPath = "/api/health"

	maxEventBytes   = 4 << 20
	requestIDHeader = "X-Request-ID"
)

type apiServer struct {
	bind   string
	token  string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		token:  cfg.Paths.APIToken,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(SOAPPath, s.withRequestID(authMiddleware(s.token, s.handleSOAP)))
	mux.HandleFunc(EventsPath, s.withRequestID(authMiddleware(s.token, s.handleEvent)))
	mux.HandleFunc(HealthPath, s.handleHealth)
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// withRequestID stamps a correlation ID on the request context and response.
// A caller-supplied X-Request-ID is reused.
func (s *apiServer) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	}
}

func (s *apiServer) handleSOAP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeSOAP(w, soap11, http.StatusBadRequest, soapFault(soap11, true, err.Error()))
		return
	}

	eventXML, version, err := parseNotify(body)
	if err != nil {
		s.logger.Warn("rejected soap request",
			append(logging.Args(logging.ContextFields(r.Context())...), logging.Error(err))...,
		)
		writeSOAP(w, version, faultStatus(version, true), soapFault(version, true, err.Error()))
		return
	}

	if err := s.daemon.process(r.Context(), []byte(eventXML), "soap"); err != nil {
		client := errors.Is(err, services.ErrMalformedEvent)
		writeSOAP(w, version, faultStatus(version, client), soapFault(version, client, err.Error()))
		return
	}
	writeSOAP(w, version, http.StatusOK, notifyResponse(version))
}

type eventResponse struct {
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *apiServer) handleEvent(w http.ResponseWriter, r *http.Request) {
	requestID, _ := services.RequestIDFromContext(r.Context())
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, eventResponse{Error: err.Error(), RequestID: requestID})
		return
	}
	if err := s.daemon.process(r.Context(), body, "http"); err != nil {
		s.writeJSON(w, services.HTTPStatus(err), eventResponse{Error: err.Error(), RequestID: requestID})
		return
	}
	s.writeJSON(w, http.StatusOK, eventResponse{Status: "accepted", RequestID: requestID})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(body) == 0 {
		return nil, errors.New("request body is empty")
	}
	return body, nil
}

// faultStatus follows the SOAP HTTP bindings: 1.1 faults are always 500, 1.2
// sender faults are 400.
func faultStatus(version soapVersion, client bool) int {
	if version == soap12 && client {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeSOAP(w http.ResponseWriter, version soapVersion, status int, payload []byte) {
	w.Header().Set("Content-Type", version.contentType())
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
