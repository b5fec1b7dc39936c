package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cardarena/arena-server-go/internal/bus"
	"github.com/cardarena/arena-server-go/internal/chat"
	"github.com/cardarena/arena-server-go/internal/config"
	"github.com/cardarena/arena-server-go/internal/game"
	"github.com/cardarena/arena-server-go/internal/user"
)

// Server is the boundary between the transport and the core. It holds no
// game state of its own: each connection carries its identity binding, and
// everything else lives in the registry, the game manager and the chat
// store.
type Server struct {
	cfg      config.ServerConfig
	registry *user.Registry
	games    *game.Manager
	chats    chat.Store
	bus      bus.Publisher
	upgrader websocket.Upgrader
	http     *http.Server
	logger   *zap.Logger
}

// New wires the server against its collaborators.
func New(
	cfg config.ServerConfig,
	registry *user.Registry,
	games *game.Manager,
	chats chat.Store,
	publisher bus.Publisher,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cfg:      cfg,
		registry: registry,
		games:    games,
		chats:    chats,
		bus:      publisher,
		logger:   logger,
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
	}
	if !cfg.CheckOrigin {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	r := mux.NewRouter()
	r.Use(s.requestLogging)
	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	if cfg.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	}

	s.http = &http.Server{
		Addr:    cfg.Address,
		Handler: r,
	}
	return s
}

// ListenAndServe runs the HTTP listener until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server listening", zap.String("address", s.cfg.Address))
	return s.http.ListenAndServe()
}

// Shutdown stops the HTTP listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
		)
		next.ServeHTTP(w, r)
	})
}

// handleWS upgrades the connection and binds it to the client-supplied
// identity from the query parameters. The identity is trusted as-is.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "userId query parameter must be a positive integer", http.StatusBadRequest)
		return
	}
	userName := r.URL.Query().Get("userName")
	if userName == "" {
		http.Error(w, "userName query parameter is required", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newConn(userID, userName, ws, s)
	s.registry.Register(userID, userName, c)
	c.start()

	s.logger.Info("user connected",
		zap.Int64("user_id", userID),
		zap.String("name", userName),
	)
	s.broadcastPresence()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.games.GetStats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Connected int `json:"connected"`
		game.Stats
	}{
		// The reserved broadcast identity is not a connection.
		Connected: len(s.registry.Snapshot()) - 1,
		Stats:     stats,
	})
}

// broadcastPresence pushes the current user snapshot to every live
// endpoint.
func (s *Server) broadcastPresence() {
	snapshot := s.registry.Snapshot()
	for _, ep := range s.registry.Endpoints() {
		if err := ep.Send(EventUpdateConnectedUsers, snapshot); err != nil {
			s.logger.Debug("presence broadcast dropped", zap.Error(err))
		}
	}
	s.bus.Publish(context.Background(), EventUpdateConnectedUsers, snapshot)
}
