package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/FayezAlshami/DTC/internal/adapter/email"
	adaptermongo "github.com/FayezAlshami/DTC/internal/adapter/mongo"
	adapternats "github.com/FayezAlshami/DTC/internal/adapter/nats"
	adapterredis "github.com/FayezAlshami/DTC/internal/adapter/redis"
	adapterminio "github.com/FayezAlshami/DTC/internal/adapter/storage/minio"
	"github.com/FayezAlshami/DTC/internal/app/config"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/platform/metrics"
	"github.com/FayezAlshami/DTC/internal/platform/tracer"
	"github.com/FayezAlshami/DTC/internal/port/httpapi"
	"github.com/FayezAlshami/DTC/internal/service"
	"github.com/FayezAlshami/DTC/internal/service/effect"
)

const serviceName = "dtc_marketplace"

// Run wires the whole service together and blocks until shutdown.
func Run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsManager := metrics.NewManager(serviceName)

	tracerProvider := tracer.Init(serviceName, cfg.Tracing.OTLPEndpoint, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.TimeoutGraceful)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Tracer shutdown failed: %v", err)
		}
	}()

	mongoClient, err := adaptermongo.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warnf("MongoDB disconnect failed: %v", err)
		}
	}()
	db := mongoClient.Database(cfg.MongoDB.Database)

	listingRepo := adaptermongo.NewListingRepo(db, log)
	negotiationRepo := adaptermongo.NewNegotiationRepo(db, log)
	userRepo := adaptermongo.NewUserRepo(db, log)
	auditRepo := adaptermongo.NewAuditRepo(db, log)

	if err := listingRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := negotiationRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := auditRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	redisClient, err := adapterredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warnf("Redis close failed: %v", err)
		}
	}()
	effectStore := adapterredis.NewEffectStore(redisClient, log)
	listingCache := adapterredis.NewListingCache(redisClient, log)

	natsConn, err := adapternats.Connect(cfg.NATS, log)
	if err != nil {
		return err
	}
	defer natsConn.Drain()
	channelGateway := adapternats.NewChannelGateway(natsConn, cfg.NATS, log)
	notifier := adapternats.NewNotificationPublisher(natsConn, cfg.NATS.NotifySubject, log)

	mediaStore, err := adapterminio.NewMediaStore(ctx, cfg.MinIO, log)
	if err != nil {
		return err
	}

	emailSender := email.NewSMTPSender(cfg.SMTP, log)

	coordinator := effect.NewCoordinator(
		effectStore, channelGateway, notifier, emailSender,
		metricsManager, log, cfg.Listing.EffectTTL,
	)

	listingService := service.NewListingService(
		listingRepo, userRepo, listingCache, mediaStore,
		coordinator, metricsManager, log, cfg.Listing,
	)
	negotiationService := service.NewNegotiationService(
		negotiationRepo, listingRepo, userRepo, listingCache,
		coordinator, metricsManager, log,
	)
	moderationService := service.NewModerationService(
		listingRepo, negotiationRepo, userRepo, auditRepo, listingCache,
		coordinator, metricsManager, log,
	)

	handler := httpapi.NewHandler(listingService, negotiationService, moderationService, metricsManager, log)
	router := httpapi.NewRouter(handler, cfg.Auth.JWTSecret, log)

	go func() {
		if err := metrics.StartServer(cfg.Metrics.Port, log, metricsManager.Registry); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server stopped: %v", err)
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.HTTPServer.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on port %s", cfg.HTTPServer.Port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.TimeoutGraceful)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown failed: %v", err)
		return err
	}
	log.Info("Server stopped gracefully")
	return nil
}
