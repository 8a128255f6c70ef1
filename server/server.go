package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aymanh23/searchv2/config"
	"github.com/aymanh23/searchv2/pipeline"
	"github.com/aymanh23/searchv2/protocol"
	"github.com/aymanh23/searchv2/store"
	"github.com/aymanh23/searchv2/streamers"
)

const shutdownTimeout = 10 * time.Second

// Options configures the intake server.
type Options struct {
	Config   *config.Config
	Stores   *store.Bundle
	Factory  pipeline.CommunicatorFactory
	Searcher pipeline.Searcher
}

// Server hosts the intake pipeline over HTTP and WebSocket. Each WebSocket
// connection drives its own session registry and receives pipeline events as
// they happen; the HTTP surface shares one registry and reads finished state
// from the store.
type Server struct {
	cfg      *config.Config
	stores   *store.Bundle
	factory  pipeline.CommunicatorFactory
	searcher pipeline.Searcher

	registry *pipeline.Registry
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

// New creates a server from options. Stores are required; every surface
// persists intakes and events through them.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Stores == nil {
		return nil, fmt.Errorf("stores are required")
	}
	if opts.Factory == nil {
		return nil, fmt.Errorf("communicator factory is required")
	}
	if opts.Searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}

	s := &Server{
		cfg:      opts.Config,
		stores:   opts.Stores,
		factory:  opts.Factory,
		searcher: opts.Searcher,
		conns:    make(map[*Conn]struct{}),
	}
	s.registry = pipeline.NewRegistry(s.factory, s.searcher).
		WithStore(s.stores).
		WithHandlerFactory(func() streamers.PipelineHandler {
			return streamers.NewStoringPipelineHandler(streamers.NopPipelineHandler{}, s.stores.Events)
		})
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("POST /intake", s.handleIntake)
	mux.HandleFunc("POST /answer", s.handleAnswer)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("GET /sessions/{id}/events", s.handleGetEvents)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)

	serverCfg := config.ServerConfig{}
	if s.cfg.Server != nil {
		serverCfg = *s.cfg.Server
	}
	serverCfg.Defaults()
	s.httpSrv = &http.Server{
		Addr:    serverCfg.Listen,
		Handler: mux,
	}
	return s, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpSrv.Addr
}

// Handler returns the HTTP handler, for mounting under a test server.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run listens until the context is cancelled, then shuts down gracefully
// and closes any live WebSocket connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Intake server listening on %s", s.httpSrv.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.httpSrv.Shutdown(shutdownCtx)

	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown timed out")
	}
	return err
}

func (s *Server) checkOrigin(r *http.Request) bool {
	var allowed []string
	if s.cfg.Server != nil {
		allowed = s.cfg.Server.AllowedOrigins
	}
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// handleWS upgrades the request and hands the socket its own registry. The
// user query parameter scopes every session opened over the connection;
// absent, the connection gets an anonymous user of its own.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = uuid.NewString()
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := newConn(s, ws, userID)
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	conn.run()

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// =============================================================================
// HTTP surface
// =============================================================================

func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	var payload protocol.StartIntakePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.UserID == "" {
		httpError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if payload.Description == "" {
		httpError(w, http.StatusBadRequest, "description is required")
		return
	}

	update, err := s.registry.Start(r.Context(), payload.UserID, payload.Description)
	if err != nil {
		httpError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, UpdateToPayload(update))
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var payload protocol.AnswerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.SessionID == "" {
		httpError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if payload.Answer == "" {
		httpError(w, http.StatusBadRequest, "answer is required")
		return
	}

	update, err := s.registry.Answer(r.Context(), payload.UserID, payload.SessionID, payload.Answer)
	if err != nil {
		if errors.Is(err, pipeline.ErrSessionNotFound) {
			httpError(w, http.StatusNotFound, err.Error())
			return
		}
		httpError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, UpdateToPayload(update))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		httpError(w, http.StatusBadRequest, "user query parameter is required")
		return
	}
	records, err := s.stores.Intakes.ListIntakes(userID, 50)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": records})
}

// handleGetSession reads the stored record, so sessions opened over any
// surface can be inspected here. Records belonging to another user report
// not found.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	record := s.authorizedRecord(w, r)
	if record == nil {
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	record := s.authorizedRecord(w, r)
	if record == nil {
		return
	}
	events, err := s.stores.Events.GetEvents(record.ID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	record := s.authorizedRecord(w, r)
	if record == nil {
		return
	}

	// The live session, if this server's registry owns one, goes first.
	userID := r.URL.Query().Get("user")
	if err := s.registry.Cancel(userID, record.ID); err != nil && !errors.Is(err, pipeline.ErrSessionNotFound) {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !terminalStatus(record.Status) {
		if err := s.stores.Intakes.UpdateIntakeStatus(record.ID, store.IntakeStatusCancelled); err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizedRecord loads the intake for the path ID and enforces the user
// query parameter. A missing record and a wrong user look identical to the
// caller. Writes the error response itself and returns nil on failure.
func (s *Server) authorizedRecord(w http.ResponseWriter, r *http.Request) *store.IntakeRecord {
	id := r.PathValue("id")
	userID := r.URL.Query().Get("user")
	if userID == "" {
		httpError(w, http.StatusBadRequest, "user query parameter is required")
		return nil
	}

	record, err := s.stores.Intakes.GetIntake(id)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	if record == nil || record.UserID != userID {
		httpError(w, http.StatusNotFound, "session not found")
		return nil
	}
	return record
}

func terminalStatus(status string) bool {
	switch status {
	case store.IntakeStatusCompleted, store.IntakeStatusFailed, store.IntakeStatusCancelled:
		return true
	}
	return false
}

func httpError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
