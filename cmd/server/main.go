package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diamond-price-service/internal/adapters/primary/http/handlers"
	"diamond-price-service/internal/adapters/primary/http/middleware"
	"diamond-price-service/internal/adapters/secondary/filesystem"
	"diamond-price-service/internal/adapters/secondary/prometheus"
	"diamond-price-service/internal/config"
	"diamond-price-service/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters (Output Ports)
	fs := afero.NewOsFs()
	registry := filesystem.NewRegistry(fs, &cfg.Registry)
	collector := prometheus.NewCollector()

	// Core Services (Application Layer)
	predictorSvc := services.NewPredictorService(registry, collector)

	// Warm the cache; an empty or broken registry leaves the service UNLOADED
	// and the first prediction retries the load.
	if _, err := predictorSvc.Refresh(ctx); err != nil {
		log.WithError(err).Warn("no model loaded at startup")
	}

	// Registry Watcher (Optional - based on config)
	if cfg.Registry.Watch {
		watcher := filesystem.NewWatcher(fs, &cfg.Registry)
		go func() {
			err := watcher.Watch(ctx, func() {
				if _, err := predictorSvc.Refresh(ctx); err != nil {
					log.WithError(err).Error("reload after registry change failed")
				}
			})
			if err != nil && ctx.Err() == nil {
				log.WithError(err).Error("registry watcher stopped")
			}
		}()
		log.WithField("dir", cfg.Registry.Dir).Info("registry watch enabled")
	} else {
		log.Info("registry watch disabled")
	}

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(predictorSvc)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics(collector))
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(collector.Gatherer(), promhttp.HandlerOpts{})))
	}

	h.RegisterRoutes(router)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
