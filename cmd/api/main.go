package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	cartrepo "storefront/internal/repository/cart"
	customerrepo "storefront/internal/repository/customer"
	itemrepo "storefront/internal/repository/item"
	orderrepo "storefront/internal/repository/order"
	tokenrepo "storefront/internal/repository/token"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	customersvc "storefront/internal/service/customer"
	ordersvc "storefront/internal/service/order"
)

type orderPublisher interface {
	checkoutsvc.Publisher
	Close() error
}

func main() {
	cfg := config.FromEnv()
	logger := logging.New("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer dbpool.Close()

	rdb, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to redis")
	}
	defer rdb.Close()

	itemRepo := itemrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewRedis(rdb, logger)
	customerRepo := customerrepo.NewPostgres(dbpool, logger)
	tokenRepo := tokenrepo.NewPostgres(dbpool)

	var publisher orderPublisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaOrderTopic), logger)
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not set, order events are dropped")
	}
	defer publisher.Close()

	cartService := cartsvc.New(cartRepo, itemRepo, cartrepo.NewTokenCodec(cfg.CartTokenSecret))
	customerService := customersvc.New(customerRepo, tokenRepo)
	orderService := ordersvc.New(orderRepo, logger)
	checkoutService := checkoutsvc.New(orderRepo, cartRepo, itemRepo, publisher, checkoutsvc.Options{
		ShippingFee: cfg.ShippingFee,
		MaxAttempts: cfg.CheckoutMaxAttempts,
	}, logger)

	consumerDone := make(chan struct{})
	if len(cfg.KafkaBrokers) > 0 {
		consumer := events.NewPaymentConsumer(
			events.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaPaymentTopic, cfg.KafkaGroupID),
			orderService,
			logger,
		)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("payment consumer stopped")
			}
			if err := consumer.Close(); err != nil {
				logger.Error().Err(err).Msg("close payment consumer")
			}
		}()
	} else {
		close(consumerDone)
	}

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		CustomerSvc: customerService,
		CartSvc:     cartService,
		CheckoutSvc: checkoutService,
		OrderSvc:    orderService,
		Items:       itemRepo,
		Probes: map[string]httpserver.Probe{
			"postgres": dbpool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	}, httpserver.Options{
		CartCookieName:     cfg.CartCookieName,
		InternalAPIToken:   cfg.InternalAPIToken,
		InternalRoutesOpen: cfg.InternalRoutesOpen,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("server error")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		logger.Info().Msg("server stopped")
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("payment consumer did not stop in time")
	}
}
