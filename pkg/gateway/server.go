// Package gateway is the peer messaging channel: an unauthenticated HTTP
// endpoint receiving generic text and tool-share payloads from peer agents,
// and an outbound client for sending to them.
//
// There is deliberately no authentication: any reachable sender may submit a
// message or propose a tool. The intended deployment is loopback or a
// trusted local network; tool-shares are additionally gated by the approval
// queue before they can touch the store or the namespace.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/voss/swarmtool/internal/observability"
)

// ProposalSink receives inbound tool-share payloads. Implemented by the
// runtime, which classifies and queues them for approval.
type ProposalSink interface {
	Propose(name, source, senderID string) error
}

// Server is the inbound peer endpoint.
type Server struct {
	bind         string
	port         int
	server       *http.Server
	upgrader     websocket.Upgrader
	proposals    ProposalSink
	admin        ProposalAdmin
	broadcaster  *EventBroadcaster
	logger       zerolog.Logger
	inboxMu      sync.Mutex
	inbox        []string
	shutdownMu   sync.RWMutex
	shuttingDown bool
}

// Config holds server configuration.
type Config struct {
	Bind      string
	Port      int
	Proposals ProposalSink
	Admin     ProposalAdmin // optional; enables the /proposals endpoints
	Logger    zerolog.Logger
}

// NewServer creates a peer messaging server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Proposals == nil {
		return nil, fmt.Errorf("proposal sink is required")
	}
	if cfg.Bind == "" {
		cfg.Bind = "127.0.0.1"
	}

	return &Server{
		bind:        cfg.Bind,
		port:        cfg.Port,
		proposals:   cfg.Proposals,
		admin:       cfg.Admin,
		broadcaster: NewEventBroadcaster(cfg.Logger),
		logger:      cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local-network trust boundary, same as /message
			},
		},
	}, nil
}

// Broadcaster returns the event broadcaster so the runtime can publish
// lifecycle events to connected observers.
func (s *Server) Broadcaster() *EventBroadcaster {
	return s.broadcaster
}

// Start binds the endpoint and serves in the background.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/message", s.handleMessage)
	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.admin != nil {
		mux.HandleFunc("/proposals", s.handleProposalList)
		mux.HandleFunc("/proposals/approve", s.handleProposalDecision)
		mux.HandleFunc("/proposals/reject", s.handleProposalDecision)
	}
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.bind, s.port),
		Handler: mux,
	}

	s.logger.Info().Str("bind", s.bind).Int("port", s.port).Msg("Starting peer gateway")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Peer gateway server error")
		}
	}()

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down peer gateway")

	for _, o := range s.broadcaster.all() {
		o.conn.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info().Msg("Peer gateway stopped")
	return nil
}

// Inbox returns the generic messages received so far, oldest first.
func (s *Server) Inbox() []string {
	s.inboxMu.Lock()
	defer s.inboxMu.Unlock()
	out := make([]string, len(s.inbox))
	copy(out, s.inbox)
	return out
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := validatePeerMessage(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var msg PeerMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		http.Error(w, "malformed JSON", http.StatusBadRequest)
		return
	}

	switch msg.Kind() {
	case KindToolShare:
		s.handleToolShare(w, r, msg)
	default:
		s.handleText(w, msg)
	}
}

func (s *Server) handleText(w http.ResponseWriter, msg PeerMessage) {
	observability.RecordPeerMessage(string(KindText))

	s.inboxMu.Lock()
	s.inbox = append(s.inbox, msg.Message)
	s.inboxMu.Unlock()

	s.logger.Info().Str("message", msg.Message).Msg("Received peer message")
	s.broadcaster.Broadcast("peer.message", map[string]interface{}{
		"message": msg.Message,
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(MessageResponse{Status: "ok", Received: msg.Message})
}

func (s *Server) handleToolShare(w http.ResponseWriter, r *http.Request, msg PeerMessage) {
	observability.RecordPeerMessage(string(KindToolShare))

	// The sender's host is the only identity we have on this channel. The
	// port is dropped: it is ephemeral per connection, and keeping it would
	// give a retrying peer a fresh (name, sender) key on every reconnect.
	senderID := senderIdentity(r.RemoteAddr)

	if err := s.proposals.Propose(msg.Name, msg.Source, senderID); err != nil {
		s.logger.Warn().
			Err(err).
			Str("tool", msg.Name).
			Str("sender", senderID).
			Msg("Rejected tool-share")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	s.logger.Info().
		Str("tool", msg.Name).
		Str("sender", senderID).
		Msg("Tool-share queued for approval")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "queued",
		"name":   msg.Name,
	})
}

// senderIdentity reduces a remote address to its host part.
func senderIdentity(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.shuttingDown {
		s.shutdownMu.RUnlock()
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	s.shutdownMu.RUnlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	id, err := gonanoid.New()
	if err != nil {
		conn.Close()
		return
	}

	o := &observer{id: id, conn: conn}
	s.broadcaster.add(o)
	s.logger.Debug().Str("observerId", id).Msg("Observer connected")

	// Drain reads until the peer goes away; observers are write-only.
	go func() {
		defer func() {
			s.broadcaster.remove(id)
			conn.Close()
			s.logger.Debug().Str("observerId", id).Msg("Observer disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
