// Package server exposes the HTTP API: registration, login, user and
// message listings, message sends, and the WebSocket upgrade.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/jaevor/go-nanoid"

	"pairchat/internal/chat"
)

// Server holds the request handlers and their collaborators. Everything is
// injected at construction; there is no package-level state.
type Server struct {
	cfg           Config
	hub           *Hub
	chat          *chat.Service
	upgrader      websocket.Upgrader
	newUploadName func() string
}

// New builds a Server from its collaborators. The configuration is
// sanitized, so zero values fall back to defaults.
func New(cfg Config, hub *Hub, service *chat.Service) (*Server, error) {
	cfg = cfg.sanitized()

	newName, err := nanoid.Standard(21)
	if err != nil {
		return nil, err
	}

	policy := newOriginPolicy(cfg.AllowedOrigins)

	return &Server{
		cfg:  cfg,
		hub:  hub,
		chat: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.checkOrigin,
		},
		newUploadName: newName,
	}, nil
}

type apiResponse struct {
	Message string        `json:"message"`
	User    *chat.User    `json:"user,omitempty"`
	Msg     *chat.Message `json:"msg,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

// writeServiceError maps a chat/store error onto an HTTP status and a
// message body.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "All fields required"})
	case errors.Is(err, chat.ErrDuplicateUser):
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "User already exists"})
	case errors.Is(err, chat.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, apiResponse{Message: "Invalid credentials"})
	default:
		log.Printf("Internal error handling request: %v", err)
		writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "Internal server error"})
	}
}

// RegisterHandler creates a new user from a multipart form with username,
// email, password, and an optional profilePic file.
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Invalid form data"})
		return
	}

	profilePic, err := s.saveUpload(r, "profilePic")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	user, err := s.chat.Register(
		r.FormValue("username"),
		r.FormValue("email"),
		r.FormValue("password"),
		profilePic,
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Message: "Registered successfully", User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler checks a credential pair supplied as JSON or as an
// urlencoded form and returns the matching user.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Invalid request body"})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Invalid form data"})
			return
		}
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}

	user, err := s.chat.Login(req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Message: "Login successful", User: user})
}

// UsersHandler returns every registered user.
func (s *Server) UsersHandler(w http.ResponseWriter, _ *http.Request) {
	users, err := s.chat.Users()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// MessagesHandler returns the messages exchanged between the two users in
// the path, in storage order. The pair is unordered.
func (s *Server) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	messages, err := s.chat.MessagesBetween(r.PathValue("user1"), r.PathValue("user2"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// SendHandler persists a new message from a multipart form with sender,
// receiver, text, and an optional file attachment, then broadcasts it to
// every connected session. The broadcast is best-effort and never fails the
// request; it happens only after persistence has succeeded.
func (s *Server) SendHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "Invalid form data"})
		return
	}

	file, err := s.saveUpload(r, "file")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	msg, err := s.chat.Send(
		r.FormValue("sender"),
		r.FormValue("receiver"),
		r.FormValue("text"),
		file,
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.broadcastNewMessage(msg)

	writeJSON(w, http.StatusOK, apiResponse{Message: "Message sent", Msg: msg})
}

func (s *Server) broadcastNewMessage(msg *chat.Message) {
	payload, err := json.Marshal(Event{Event: EventNewMessage, Data: msg})
	if err != nil {
		log.Printf("Error encoding newMessage event: %v", err)
		return
	}
	s.hub.Broadcast(payload)
}

// WebSocketHandler upgrades the connection and registers the resulting
// session with the hub, which starts the pump goroutines.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	session := NewSession(conn, s.hub, r.RemoteAddr, s.cfg.MaxMessageSize)
	s.hub.Register(session)
}

// HealthHandler provides a simple liveness probe.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("pairchat server is running!")); err != nil {
		log.Printf("Error writing health response: %v", err)
	}
}
