package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackwatters45/gate-cs-ws/collab"
	"github.com/jackwatters45/gate-cs-ws/config"
	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/jackwatters45/gate-cs-ws/handlers/api/documents"
	apirooms "github.com/jackwatters45/gate-cs-ws/handlers/api/rooms"
	"github.com/jackwatters45/gate-cs-ws/handlers/health"
	"github.com/jackwatters45/gate-cs-ws/handlers/socketio"
	"github.com/jackwatters45/gate-cs-ws/handlers/websocket"
	"github.com/jackwatters45/gate-cs-ws/rooms"
	"github.com/jackwatters45/gate-cs-ws/stores"
	"github.com/sirupsen/logrus"
	sio "github.com/zishang520/socket.io/v2/socket"
)

func setupRouter(cfg config.Config, documentStore core.DocumentStore, engine *collab.Engine) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", health.Handle)
	r.Get("/api/rooms", apirooms.HandleList(engine.Rooms()))
	r.Get("/api/documents/{roomKey}", documents.HandleGet(documentStore))
	r.Handle("/ws", websocket.NewHandler(engine, websocket.Options{
		Origins:         cfg.Origins(),
		SendBuffer:      cfg.WSSendBuffer,
		MaxMessageBytes: cfg.MaxMessageBytes,
	}))
	r.NotFound(health.NotFound)

	return r
}

func waitForShutdown(srv *http.Server, ioo *sio.Server, documentStore core.DocumentStore) {
	exit := make(chan struct{})
	signalC := make(chan os.Signal, 1)

	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range signalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	logrus.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ioo.Close(nil)
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown")
	}
	if closer, ok := documentStore.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logrus.WithError(err).Warn("Closing store")
		}
	}
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	documentStore, err := stores.GetStore(context.Background(), cfg)
	if err != nil {
		logrus.WithField("storageType", cfg.StorageType).Fatal(err)
	}

	engine := collab.NewEngine(documentStore, rooms.NewRegistry())

	r := setupRouter(cfg, documentStore, engine)
	ioo := socketio.SetupSocketIO(engine, socketio.Options{
		Origins:           cfg.Origins(),
		MaxHttpBufferSize: cfg.MaxMessageBytes,
	})
	r.Handle("/socket.io/", ioo.ServeHandler(nil))

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}

	logrus.WithField("addr", cfg.ListenAddr).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(srv, ioo, documentStore)
}
