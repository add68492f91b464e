package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/abuse"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/audit"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/identity"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/otp"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/config"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/logger"
	platformredis "github.com/mohammad-issa2020/backend-7awell-sub001/internal/platform/redis"
	ratelimitMW "github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/middleware"
	ratelimitSvc "github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/service"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/ratelimit/store/bucket"
	httptransport "github.com/mohammad-issa2020/backend-7awell-sub001/internal/transport/http"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/metrics"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/service"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/store"
	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/verification/workers/cleanup"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing verification server",
		"addr", cfg.Addr,
		"session_ttl", cfg.Verification.SessionTTL.String(),
		"redis_configured", cfg.Redis.URL != "",
	)

	auditPublisher := audit.NewPublisher(audit.NewInMemoryStore(),
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	defer auditPublisher.Close()

	sessions, redisClient, err := buildSessionStore(cfg, log)
	if err != nil {
		log.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	abuseStore := abuse.NewInMemoryStore(cfg.Abuse.Window)
	detector, err := abuse.New(abuseStore, cfg.Abuse,
		abuse.WithLogger(log),
		abuse.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		log.Error("failed to initialize abuse detector", "error", err)
		os.Exit(1)
	}

	bucketStore := bucket.NewInMemoryBucketStore()
	limiter, err := ratelimitSvc.New(bucketStore, cfg.RateLimit, ratelimitSvc.WithLogger(log))
	if err != nil {
		log.Error("failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}

	identitySvc, err := identity.New(identity.NewInMemoryAccountStore(), cfg.Credential,
		identity.WithLogger(log),
	)
	if err != nil {
		log.Error("failed to initialize identity service", "error", err)
		os.Exit(1)
	}

	verificationSvc, err := service.New(sessions, buildGateway(cfg, log), identitySvc, cfg.Verification,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(metrics.New()),
		service.WithAbuseDetector(detector),
	)
	if err != nil {
		log.Error("failed to initialize verification service", "error", err)
		os.Exit(1)
	}

	handler := httptransport.NewHandler(verificationSvc, log)
	rateLimitMW := ratelimitMW.New(limiter, log, ratelimitMW.WithAuditPublisher(auditPublisher))
	router := httptransport.NewRouter(handler, rateLimitMW, identitySvc, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if redisClient != nil {
		group.Go(func() error {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					redisClient.CollectPoolStats()
				}
			}
		})
	}

	sweeper := cleanup.New(sessions, time.Minute, log, abuseStore, bucketStore)
	group.Go(func() error {
		err := sweeper.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// buildSessionStore picks Redis when configured, falling back to the
// in-process reference store.
func buildSessionStore(cfg config.Config, log *slog.Logger) (store.Store, *platformredis.Client, error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("using in-memory session store")
		return store.NewInMemoryStore(), nil, nil
	}
	log.Info("using redis session store")
	return store.NewRedisStore(client.Client), client, nil
}

// buildGateway returns the HTTP provider client when a base URL is
// configured, otherwise the in-process stub for local development.
func buildGateway(cfg config.Config, log *slog.Logger) service.Gateway {
	if cfg.OTP.BaseURL != "" {
		return otp.NewHTTPGateway(cfg.OTP)
	}
	log.Warn("no OTP provider configured, using in-process stub gateway")
	return otp.NewStubGateway(otp.WithStubLogger(log))
}
