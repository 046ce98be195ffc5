// Package ws provides a WebSocket server pushing messages to its clients, for
// tests.
package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"
	"github.com/shamaton/msgpack/v2"
)

type command struct {
	value      any
	binary     bool
	disconnect bool
}

// Server is a WebSocket server sending the messages given to SendJSON and
// SendMsgpack to the connected client.
type Server struct {
	*httptest.Server
	commandChan chan command
}

// NewServer starts a Server.
func NewServer() *Server {
	s := &Server{
		commandChan: make(chan command),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Err(err).Msg("failed to accept WebSocket connection")
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.commandChan:
			if err := s.write(ctx, conn, cmd); err != nil {
				log.Err(err).Msg("failed to send message")
				return
			}
			if cmd.disconnect {
				return
			}
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, cmd command) error {
	switch {
	case cmd.disconnect:
		return conn.Close(websocket.StatusGoingAway, "disconnect")
	case cmd.binary:
		data, err := msgpack.Marshal(cmd.value)
		if err != nil {
			return err
		}
		return conn.Write(ctx, websocket.MessageBinary, data)
	default:
		return wsjson.Write(ctx, conn, cmd.value)
	}
}

// WSURL returns the ws:// URL of the server.
func (s *Server) WSURL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

// SendJSON sends v as a JSON text frame. It blocks until a client is
// connected.
func (s *Server) SendJSON(v any) {
	s.commandChan <- command{value: v}
}

// SendMsgpack sends v as a MessagePack binary frame. It blocks until a client
// is connected.
func (s *Server) SendMsgpack(v any) {
	s.commandChan <- command{value: v, binary: true}
}

// Disconnect closes the connection of the current client.
func (s *Server) Disconnect() {
	s.commandChan <- command{disconnect: true}
}
