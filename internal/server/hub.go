// Package server coordinates session registration, message fan-out, and
// connection cleanup for the pairchat push channel via the Hub type.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// Hub tracks all connected WebSocket sessions and fans newly persisted
// messages out to them. Registration, deregistration, and broadcasts all
// flow through the hub's event loop; the session map is additionally
// mutex-protected so sends can snapshot it safely.
type Hub struct {
	sessions   map[*Session]bool
	broadcast  chan []byte
	register   chan *Session
	unregister chan *Session
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates and initializes a new Hub. The returned Hub is inert until
// Run is started in its own goroutine.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		sessions:   make(map[*Session]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands a freshly upgraded session to the hub's event loop.
func (h *Hub) Register(session *Session) {
	select {
	case h.register <- session:
	case <-h.ctx.Done():
	}
}

// Unregister removes a session from the active set. It is safe to call for
// a session that was already removed.
func (h *Hub) Unregister(session *Session) {
	select {
	case h.unregister <- session:
	case <-h.ctx.Done():
	}
}

// Broadcast delivers the payload to every currently connected session,
// best-effort. It never reports failure; sessions that cannot keep up are
// dropped. Calls after shutdown are discarded.
func (h *Hub) Broadcast(payload []byte) {
	select {
	case h.broadcast <- payload:
	case <-h.ctx.Done():
	}
}

// SessionCount returns the number of currently registered sessions.
func (h *Hub) SessionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions)
}

func (h *Hub) safeSend(session *Session, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send so a concurrent unregister
	// cannot close the channel underneath us.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.sessions[session]
	if !exists || session.closed {
		return false
	}

	select {
	case session.send <- payload:
		return true
	default:
		return false
	}
}

// Run starts the hub's main event loop, handling session registration,
// deregistration, and broadcasts. It runs until Shutdown is called and
// should be invoked in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownSessions()
			return

		case session := <-h.register:
			if session == nil {
				log.Printf("Received nil session registration; skipping")
				continue
			}

			h.mutex.Lock()
			session.closed = false
			h.sessions[session] = true
			count := len(h.sessions)
			h.mutex.Unlock()
			log.Printf("Session connected from %s. Total sessions: %d", session.addr, count)

			if session.conn != nil {
				h.wg.Add(2)
				go func() {
					defer h.wg.Done()
					session.writePump()
				}()
				go func() {
					defer h.wg.Done()
					session.readPump()
				}()
			}

		case session := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.sessions[session]; ok {
				delete(h.sessions, session)
				session.closed = true
				count := len(h.sessions)
				h.mutex.Unlock()
				// Close the channel after releasing the lock.
				close(session.send)
				log.Printf("Session disconnected from %s. Total sessions: %d", session.addr, count)
			} else {
				h.mutex.Unlock()
			}

		case payload := <-h.broadcast:
			h.handleBroadcast(payload)
		}
	}
}

// handleBroadcast delivers the payload to every session in the current set
// and removes the ones whose send buffers are full.
func (h *Hub) handleBroadcast(payload []byte) {
	sessions := h.sessionSnapshot()

	var failed []*Session
	for _, session := range sessions {
		if !h.safeSend(session, payload) {
			failed = append(failed, session)
		}
	}

	h.removeFailedSessions(failed)
}

// sessionSnapshot returns a thread-safe snapshot of the active session set.
func (h *Hub) sessionSnapshot() []*Session {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	sessions := make([]*Session, 0, len(h.sessions))
	for session := range h.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// removeFailedSessions drops sessions that failed to receive a broadcast
// and closes their send channels.
func (h *Hub) removeFailedSessions(failed []*Session) {
	if len(failed) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, session := range failed {
		if _, exists := h.sessions[session]; exists {
			delete(h.sessions, session)
			session.closed = true
			channelsToClose = append(channelsToClose, session.send)
			log.Printf("Session from %s removed due to full send buffer", session.addr)
		}
	}
	h.mutex.Unlock()

	for _, ch := range channelsToClose {
		close(ch)
	}
}

// shutdownSessions closes every active transport connection.
func (h *Hub) shutdownSessions() {
	log.Println("Shutting down all session connections...")

	h.mutex.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.mutex.Unlock()

	for _, session := range sessions {
		if session.conn != nil {
			if err := session.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing session connection from %s: %v", session.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d session connections", len(sessions))
}

// Shutdown stops the event loop, closes every session, and waits for the
// pump goroutines to finish or the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	// Wait for Run() to complete.
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
