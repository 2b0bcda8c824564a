package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pairchat/internal/chat"
	"pairchat/internal/server"
	"pairchat/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := server.NewConfigFromEnv()

	users, err := store.Open[*chat.User](filepath.Join(cfg.DataDir, "users.json"))
	if err != nil {
		log.Fatalf("Opening users collection: %v", err)
	}
	messages, err := store.Open[*chat.Message](filepath.Join(cfg.DataDir, "messages.json"))
	if err != nil {
		log.Fatalf("Opening messages collection: %v", err)
	}

	service := chat.NewService(users, messages)

	hub := server.NewHub()
	go hub.Run()

	srv, err := server.New(*cfg, hub, service)
	if err != nil {
		log.Fatalf("Building server: %v", err)
	}

	httpServer := server.CreateServer(cfg.Port, srv.Routes())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Printf("Received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server stopped: %v", err)
		}
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Hub shutdown: %v", err)
	}
}
