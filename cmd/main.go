package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lee-tech/locations/api/handlers"
	"github.com/lee-tech/locations/config"
	"github.com/lee-tech/locations/internal/models"
	"github.com/lee-tech/locations/internal/repository"
	"github.com/lee-tech/locations/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.Location{}, &models.LocationName{}, &models.Asset{}); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	registry := repository.DefaultResourceRegistry()
	locationRepo := repository.NewLocationRepository(db, registry)

	filterSvc := service.NewLocationFilterService(locationRepo, service.Settings{
		HierarchyLabels:  cfg.HierarchyLabels,
		RelevantLevels:   cfg.RelevantLevels,
		BaseLanguage:     cfg.BaseLanguage,
		MaxDepth:         len(cfg.RelevantLevels),
		ValidateSelected: cfg.ValidateSelected,
	}, logger)
	bookmarkSvc := service.NewBookmarkService(cfg.ServiceName, cfg.BookmarkSecret, cfg.BookmarkTTL)

	router := mux.NewRouter()
	router.Use(handlers.RequestID(), handlers.Logging(logger))

	handler := handlers.NewLocationFilterHandler(filterSvc, bookmarkSvc, cfg.TranslateLocations, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	return cfg.Build()
}
