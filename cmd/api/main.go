package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atlasmark.io/internal/audit"
	"atlasmark.io/internal/auth"
	"atlasmark.io/internal/httpapi"
	"atlasmark.io/internal/obs"
	"atlasmark.io/internal/report"
	"atlasmark.io/internal/store/pg"
)

var version = "0.3.1"

const devSecret = "atlasmark-dev-secret-do-not-use-in-production"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("ATLASMARK_COMMIT"))

	secret := os.Getenv("ATLASMARK_AUTH_SECRET")
	if secret == "" {
		if os.Getenv("ATLASMARK_ENV") == "production" {
			log.Fatal("ATLASMARK_AUTH_SECRET is required in production")
		}
		log.Println("WARNING: using insecure development signing secret")
		secret = devSecret
	}
	codec, err := auth.NewTokenCodec(secret)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	dsn := os.Getenv("ATLASMARK_PG_DSN")
	if dsn == "" {
		log.Fatal("ATLASMARK_PG_DSN is required")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	recorder := audit.NewRecorder(store.Audit())

	var opts []auth.Option
	if raw := os.Getenv("ATLASMARK_SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("parse ATLASMARK_SESSION_TTL: %v", err)
		}
		opts = append(opts, auth.WithSessionTTL(ttl))
	}
	authSvc, err := auth.NewService(store.Credentials(), store.Sessions(), recorder, codec, opts...)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	users, err := auth.NewUserAdmin(store.Credentials(), recorder)
	if err != nil {
		log.Fatalf("user admin: %v", err)
	}
	reports, err := report.NewService(store.Reports())
	if err != nil {
		log.Fatalf("report service: %v", err)
	}

	api := httpapi.New(authSvc, users, reports, recorder, httpapi.ReadyProbe{DB: store.DB()}, version)

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Opportunistic cleanup of expired sessions. Expiry is enforced lazily on
	// every verification; this only keeps the table small.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n, err := authSvc.SweepExpired(sweepCtx); err == nil && n > 0 {
					log.Printf("swept %d expired sessions", n)
				}
			}
		}
	}()

	log.Printf("Starting atlasmark-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
