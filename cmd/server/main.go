package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/blanco-cards/blanco/internal/auth"
	"github.com/blanco-cards/blanco/internal/config"
	"github.com/blanco-cards/blanco/internal/history"
	"github.com/blanco-cards/blanco/internal/ws"
)

func main() {
	log := logrus.New()

	cfg := config.Load(log)
	log.SetLevel(cfg.ParseLevel())

	historian := history.New(cfg.RedisAddr, log)
	defer historian.Close()

	tokens := auth.NewTokenIssuer(cfg.TokenSecret, cfg.ResumeTokenTTL)
	room := ws.NewRoom(cfg, historian, tokens, rand.Uint64(), log)
	defer room.Shutdown()

	server := ws.NewServer(room, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", server.ServeWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port}).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.WithFields(logrus.Fields{"signal": sig.String()}).Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("graceful shutdown incomplete")
	}
}
