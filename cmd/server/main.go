package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"haulready/internal/captcha"
	"haulready/internal/notify"
	"haulready/internal/platform/config"
	"haulready/internal/platform/health"
	"haulready/internal/platform/httpserver"
	"haulready/internal/platform/logger"
	"haulready/internal/ratelimit"
	"haulready/internal/ratelimit/workers/cleanup"
	"haulready/internal/submission/handler"
	"haulready/internal/submission/metrics"
	"haulready/internal/submission/service"
	"haulready/internal/submission/tracer"
	"haulready/internal/token"
	httptransport "haulready/internal/transport/http"
	"haulready/pkg/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("initializing haulready",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"rate_limit_max", cfg.RateLimitMax,
		"rate_limit_window", cfg.RateLimitWindow.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	healthHandler := health.New(cfg.Environment)

	// Redis shares rate-limit windows across instances; a single instance
	// runs fine on the in-memory store with a background sweeper.
	var store ratelimit.Store
	if cfg.RedisAddr != "" {
		redisStore := ratelimit.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		healthHandler.RegisterCheck("redis", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisStore.Ping(pingCtx)
		})
		store = redisStore
		log.Info("rate limiting backed by redis", "addr", cfg.RedisAddr)
	} else {
		memStore := ratelimit.NewMemoryStore()
		sweeper := cleanup.New(memStore,
			cleanup.WithLogger(log),
			cleanup.WithInterval(cfg.RateLimitWindow),
		)
		group.Go(func() error {
			return sweeper.Start(ctx)
		})
		store = memStore
		log.Info("rate limiting backed by process memory")
	}

	limiter := ratelimit.NewLimiter(store, cfg.RateLimitMax, cfg.RateLimitWindow,
		ratelimit.WithLogger(log))

	dispatcher := notify.NewTelegramDispatcher(cfg.TelegramBotToken, cfg.TelegramChatID,
		notify.WithDispatchLogger(log),
		notify.WithBreaker(circuit.New("telegram")),
	)

	opts := []service.Option{
		service.WithTokenManager(token.New(cfg.UnsubscribeSigningKey, 0)),
		service.WithMetrics(metrics.New()),
		service.WithTracer(tracer.NewOTel()),
		service.WithLogger(log),
	}
	if cfg.CaptchaEnabled() {
		opts = append(opts, service.WithVerifier(captcha.New(cfg.TurnstileSecretKey, captcha.WithLogger(log))))
	} else {
		log.Warn("TURNSTILE_SECRET_KEY not set, captcha verification disabled")
	}

	submissions := service.New(limiter, dispatcher, opts...)
	router := httptransport.NewRouter(handler.New(submissions, log), healthHandler, log)
	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
