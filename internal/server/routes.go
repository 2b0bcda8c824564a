// Package server wires the HTTP handlers into a ServeMux for the pairchat
// application via routing helpers.
package server

import "net/http"

// Routes configures and returns an HTTP handler with all application
// routes: the JSON API, the WebSocket endpoint, the health probe, and
// static file serving for the public directory (which includes uploaded
// attachments under /uploads/).
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.RegisterHandler)
	mux.HandleFunc("POST /login", s.LoginHandler)
	mux.HandleFunc("GET /users", s.UsersHandler)
	mux.HandleFunc("GET /messages/{user1}/{user2}", s.MessagesHandler)
	mux.HandleFunc("POST /send", s.SendHandler)
	mux.HandleFunc("GET /ws", s.WebSocketHandler)
	mux.HandleFunc("GET /healthz", s.HealthHandler)
	mux.Handle("/", http.FileServer(http.Dir(s.cfg.PublicDir)))
	return withCORS(mux)
}

// withCORS sets permissive cross-origin headers on every response and
// short-circuits preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
