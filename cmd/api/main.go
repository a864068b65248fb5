package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/inkwell-app/inkwell/internal/bridge"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/db"
	"github.com/inkwell-app/inkwell/internal/httpapi"
	"github.com/inkwell-app/inkwell/internal/httpapi/middleware"
	"github.com/inkwell-app/inkwell/internal/store/rabbitmq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	b := bridge.New()
	if cfg.EventRelay == "redis" {
		rds := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		b.Subscribe(bridge.NewRedisSink(rds, cfg.EventPrefix))
		log.Printf("event relay: redis addr=%s prefix=%s", cfg.RedisAddr, cfg.EventPrefix)
	}

	// The async job path is optional; the streaming path works without a
	// broker.
	var rabbit *rabbitmq.Publisher
	if p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		log.Printf("rabbit unavailable, async submit disabled: %v", err)
	} else {
		rabbit = p
		defer rabbit.Close()
	}

	router, err := httpapi.NewRouter(gdb, cfg, b, rabbit)
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	// handshake token for the desktop shell
	token, err := middleware.NewToken(cfg.AuthSecret, 24*time.Hour)
	if err != nil {
		log.Fatalf("token mint: %v", err)
	}
	log.Printf("ui handshake token: %s", token)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("api listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
