package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clearhaven/internal/auth"
	"clearhaven/internal/bankaccounts"
	"clearhaven/internal/brokerage"
	"clearhaven/internal/closure"
	"clearhaven/internal/config"
	"clearhaven/internal/db"
	"clearhaven/internal/health"
	"clearhaven/internal/httpserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	backend := brokerage.NewClient(cfg.BrokerageBaseURL, cfg.BrokerageAPIKey, cfg.BrokerageAPISecret)
	bankSvc := bankaccounts.NewService(pool)
	bus := closure.NewBus()
	closureSvc := closure.NewService(closure.NewPGStore(pool), backend, bankSvc, bus)
	authSvc := auth.NewService(pool, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	authSvc.SetAccountProvisioner(closureSvc)

	authHandler := auth.NewHandler(authSvc)
	closureHandler := closure.NewHandler(closureSvc)
	bankHandler := bankaccounts.NewHandler(bankSvc)
	progressWS := httpserver.NewProgressWSHandler(bus, authSvc, closureSvc, cfg.WebSocketOrigin)
	healthHandler := health.NewHandler(pool, time.Now())

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:    authHandler,
		ClosureHandler: closureHandler,
		BankHandler:    bankHandler,
		HealthHandler:  healthHandler,
		AuthService:    authSvc,
		InternalToken:  cfg.InternalToken,
		ProgressWS:     progressWS,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.Printf("server listening on %s", cfg.HTTPAddr)
	log.Printf("health endpoint: http://localhost%s/health", cfg.HTTPAddr)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
