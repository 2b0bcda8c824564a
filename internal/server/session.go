// Package server manages individual WebSocket sessions, handling the
// read/write pumps and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Session represents one connected push-channel client. The channel is
// server-push only: the session receives newMessage events and its read
// pump exists solely to observe pongs and detect disconnects. Inbound data
// frames are discarded.
type Session struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	addr   string
	closed bool
}

// NewSession creates a Session over an upgraded connection. The send
// channel is buffered so a short burst of broadcasts does not drop the
// session.
func NewSession(conn *websocket.Conn, hub *Hub, addr string, readLimit int64) *Session {
	if conn != nil && readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}

	return &Session{
		conn:   conn,
		send:   make(chan []byte, 256),
		hub:    hub,
		addr:   addr,
		closed: false,
	}
}

// SendChan returns the session's send channel for reading outgoing payloads.
func (s *Session) SendChan() <-chan []byte {
	return s.send
}

func (s *Session) setupReadConnection() {
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", s.addr, err)
	}
	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", s.addr, err)
		}
		return nil
	})
}

// handleReadError logs an appropriate message for the error and reports
// whether the read loop should stop.
func (s *Session) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		log.Printf("Session %s disconnected: %v", s.addr, err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		log.Printf("Session %s connection closed: %v", s.addr, err)
		return true
	}

	log.Printf("WebSocket read error from %s: %v", s.addr, err)
	return true
}

// readPump consumes the connection until it closes. Anything the client
// sends on the socket is ignored; the HTTP API is the only write path.
func (s *Session) readPump() {
	defer func() {
		s.hub.Unregister(s)
		if err := s.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection in readPump: %v", err)
			}
		}
	}()

	s.setupReadConnection()

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if s.handleReadError(err) {
				return
			}
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.closeConnection()
	}()

	for s.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when
// the pump should stop.
func (s *Session) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case payload, ok := <-s.send:
		return s.handlePayload(payload, ok)
	case <-ticker.C:
		return s.handlePing()
	}
}

func (s *Session) closeConnection() {
	if err := s.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error closing connection in writePump: %v", err)
		}
	}
}

// handlePayload writes one outgoing payload, draining any payloads queued
// behind it, and returns false if the connection should be closed.
func (s *Session) handlePayload(payload []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Error setting write deadline for %s: %v", s.addr, err)
		return false
	}

	if !ok {
		// Hub closed the send channel.
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error writing close message to %s: %v", s.addr, err)
			}
		}
		return false
	}

	w, err := s.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		log.Printf("Error creating writer for %s: %v", s.addr, err)
		return false
	}

	if _, err := w.Write(payload); err != nil {
		log.Printf("Error writing payload to %s: %v", s.addr, err)
		return false
	}

	if !s.writeQueuedPayloads(w) {
		return false
	}

	if err := w.Close(); err != nil {
		log.Printf("Error closing writer for %s: %v", s.addr, err)
		return false
	}
	return true
}

// writeQueuedPayloads flushes payloads already buffered on the send channel
// into the current frame, newline-separated.
func (s *Session) writeQueuedPayloads(w io.WriteCloser) bool {
	n := len(s.send)
	for i := 0; i < n; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			log.Printf("Error writing newline to %s: %v", s.addr, err)
			return false
		}
		if _, err := w.Write(<-s.send); err != nil {
			log.Printf("Error writing queued payload to %s: %v", s.addr, err)
			return false
		}
	}
	return true
}

// handlePing sends a ping message to keep the connection alive.
func (s *Session) handlePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Printf("Error setting write deadline for ping to %s: %v", s.addr, err)
		return false
	}
	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		log.Printf("Error writing ping message to %s: %v", s.addr, err)
		return false
	}
	return true
}
