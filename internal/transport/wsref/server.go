// Package wsref is a reference implementation of spec.md's inbound/outbound
// transport contract (handle_inbound / send) over a websocket, used to
// drive the Interaction Runtime end-to-end in tests and local runs without
// wiring a real chat provider.
package wsref

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// InboundHandler is invoked once per inbound frame, off the connection's
// read loop. It never blocks the socket: callers that need to take a while
// should dispatch to their own goroutine.
type InboundHandler func(channelID, message string)

// inboundFrame is the wire shape of a client-to-server message.
type inboundFrame struct {
	ChannelID string `json:"channel_id"`
	Message   string `json:"message"`
}

// outboundFrame is the wire shape of a server-to-client reply chunk.
type outboundFrame struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
	Final     bool   `json:"final"`
}

// interChunkDelay mirrors spec.md's ~500ms pacing between outbound chunks.
const interChunkDelay = 500 * time.Millisecond

// Server accepts one websocket connection per channel id and relays
// messages in both directions, implementing the inbound push / outbound
// send boundary described in spec.md §6.
type Server struct {
	handler  InboundHandler
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// NewServer creates a Server that calls handler for every inbound message.
func NewServer(handler InboundHandler) *Server {
	return &Server{
		handler:  handler,
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: func(r *http.Request) bool { return true }},
		logger:   slog.Default().With("component", "wsref"),
		conns:    make(map[string]*websocket.Conn),
	}
}

// ServeHTTP upgrades the connection and registers it under the channel_id
// query parameter, then reads inbound frames until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channel_id")
	if channelID == "" {
		http.Error(w, "channel_id is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "channel_id", channelID, "error", err)
		return
	}
	defer conn.Close()

	s.register(channelID, conn)
	defer s.unregister(channelID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Warn("dropped malformed inbound frame", "channel_id", channelID, "error", err)
			continue
		}
		if frame.ChannelID == "" {
			frame.ChannelID = channelID
		}
		if s.handler != nil {
			s.handler(frame.ChannelID, frame.Message)
		}
	}
}

func (s *Server) register(channelID string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[channelID] = conn
}

func (s *Server) unregister(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, channelID)
}

// Send implements the outbound contract: it splits text at spec.md's
// ~800-character soft cap and writes each chunk with a pacing delay,
// reporting whether the channel had a live connection to deliver to.
func (s *Server) Send(channelID, text string) bool {
	s.mu.Lock()
	conn := s.conns[channelID]
	s.mu.Unlock()
	if conn == nil {
		return false
	}

	chunks := splitMessage(text)
	for i, chunk := range chunks {
		frame := outboundFrame{ChannelID: channelID, Text: chunk, Final: i == len(chunks)-1}
		data, err := json.Marshal(frame)
		if err != nil {
			s.logger.Warn("failed to encode outbound frame", "channel_id", channelID, "error", err)
			return false
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Warn("failed to write outbound frame", "channel_id", channelID, "error", err)
			return false
		}
		if i < len(chunks)-1 {
			time.Sleep(interChunkDelay)
		}
	}
	return true
}
