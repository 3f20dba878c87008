package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"ride_ledger/internal/config"
	"ride_ledger/internal/controllers"
	"ride_ledger/internal/ledger"
	"ride_ledger/internal/logger"
	"ride_ledger/internal/middleware"
	"ride_ledger/internal/notify"
	"ride_ledger/internal/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	// Initialize structured logging
	logOut := logger.Setup(cfg.Log.File, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database
	db, err := config.InitDB(cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("database setup failed")
	}

	hub := notify.NewHub()
	fanout := notify.NewFanout()
	fanout.Add("websocket", hub)

	if cfg.AMQP.URL != "" {
		pub, err := notify.DialAMQP(ctx, cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logrus.WithError(err).Fatal("rabbitmq setup failed")
		}
		defer pub.Close()
		fanout.Add("amqp", pub)
	}
	if cfg.Redis.Addr != "" {
		pub, err := notify.NewRedisPublisher(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.Channel)
		if err != nil {
			logrus.WithError(err).Fatal("redis setup failed")
		}
		defer pub.Close()
		fanout.Add("redis", pub)
	}

	l := ledger.New(db, cfg.Ledger, fanout)
	ctl := &controllers.Controller{
		Ledger: l,
		Reader: ledger.ReadOnly(l),
		Tokens: middleware.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL),
		Hub:    hub,
	}

	// Setup Gin router, wrapped with CORS
	r := routes.SetupRouter(ctl, logOut)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           middleware.EnableCORS(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":                      cfg.HTTPAddr,
			"require_registered_driver": cfg.Ledger.RequireRegisteredDriver,
			"max_rides_per_driver":      cfg.Ledger.MaxConcurrentRidesPerDriver,
			"allow_funded_cancel":       cfg.Ledger.AllowFundedCancel,
		}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
