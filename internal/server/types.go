// Package server defines the event envelope pushed to sessions and utility
// helpers reused across session and hub logic.
package server

import "strings"

// EventNewMessage is pushed to every connected session when a message has
// been persisted.
const EventNewMessage = "newMessage"

// Event is the JSON envelope written to sessions over the WebSocket.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
