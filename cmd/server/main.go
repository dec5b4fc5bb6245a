package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/marketplace/internal/cache"
	"github.com/nikolayk812/marketplace/internal/httpapi"
	"github.com/nikolayk812/marketplace/internal/metrics"
	"github.com/nikolayk812/marketplace/internal/repository"
	"github.com/nikolayk812/marketplace/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zap.NewProduction: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}

	paymentSecret := os.Getenv("PAYMENT_SECRET")
	if paymentSecret == "" {
		return errors.New("PAYMENT_SECRET is not set")
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("pgxpool.New: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pool.Ping: %w", err)
	}

	cachePort := cache.NewNop()
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer func() { _ = client.Close() }()

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		cachePort = cache.NewRedis(client)
	} else {
		logger.Warn("REDIS_ADDR is not set, listing caches are disabled")
	}

	m := metrics.New()
	invalidator := cache.NewInvalidator(cachePort, logger)

	cartRepo := repository.NewCart(pool)
	productRepo := repository.NewProduct(pool)
	shopRepo := repository.NewShop(pool)
	orderRepo := repository.NewOrder(pool)

	cartSvc := service.NewCart(cartRepo, productRepo, logger)
	checkoutSvc := service.NewCheckout(pool, cartSvc, invalidator, m, logger)
	orderSvc := service.NewOrders(pool, orderRepo, shopRepo, invalidator, m, logger)
	paymentSvc := service.NewPayment(orderRepo, cartRepo, []byte(paymentSecret), m, logger)

	handler := httpapi.NewHandler(cartSvc, checkoutSvc, orderSvc, paymentSvc, cachePort, logger)

	mux := http.NewServeMux()
	mux.Handle("/", handler.Router())
	mux.Handle("GET /metrics", m.Handler())

	server := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", httpAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server.ListenAndServe: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}

	return nil
}
