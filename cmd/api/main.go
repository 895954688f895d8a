package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/udithsc/storefront-api/internal/config"
	"github.com/udithsc/storefront-api/internal/handler"
	"github.com/udithsc/storefront-api/internal/middleware"
	"github.com/udithsc/storefront-api/internal/payment"
	"github.com/udithsc/storefront-api/internal/repository"
	"github.com/udithsc/storefront-api/internal/service"
	"github.com/udithsc/storefront-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Payment provider
	stripeProvider := payment.NewStripeProvider(
		cfg.Stripe.SecretKey, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL, cfg.Stripe.AllowedCountries,
	)

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	addressRepo := repository.NewAddressRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	productSvc := service.NewProductService(productRepo, redisClient)
	cartSvc := service.NewCartService(cartRepo, productRepo)
	addressSvc := service.NewAddressService(addressRepo)
	checkoutSvc := service.NewCheckoutService(productRepo, stripeProvider)
	orderSvc := service.NewOrderService(orderRepo)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	productH := handler.NewProductHandler(productSvc)
	cartH := handler.NewCartHandler(cartSvc)
	addressH := handler.NewAddressHandler(addressSvc)
	checkoutH := handler.NewCheckoutHandler(checkoutSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	adminOrderH := handler.NewAdminOrderHandler(orderSvc)
	webhookH := handler.NewWebhookHandler(amqpCh, cfg.Stripe.WebhookSecret, log)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	orderWorker := worker.NewOrderWorker(amqpCh, orderRepo, cartRepo, productRepo, redisClient, log)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)
	router.POST("/webhooks/stripe", webhookH.HandleStripe)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)

		products := v1.Group("/products")
		products.GET("", productH.List)
		products.GET("/:idOrSlug", productH.Get)

		adminProducts := products.Group("", middleware.Auth(cfg.JWT.Secret), middleware.RequireRole("admin"))
		adminProducts.POST("", productH.Create)
		adminProducts.PUT("/:idOrSlug", productH.Update)
		adminProducts.DELETE("/:idOrSlug", productH.Delete)

		cart := v1.Group("/cart", middleware.Auth(cfg.JWT.Secret))
		cart.GET("", cartH.GetCart)
		cart.POST("", cartH.AddItem)
		cart.PUT("/items/:id", cartH.UpdateItem)
		cart.DELETE("/items/:id", cartH.DeleteItem)

		addresses := v1.Group("/addresses", middleware.Auth(cfg.JWT.Secret))
		addresses.GET("", addressH.List)
		addresses.POST("", addressH.Create)
		addresses.PUT("/:id", addressH.Update)
		addresses.DELETE("/:id", addressH.Delete)

		v1.POST("/checkout", middleware.OptionalAuth(cfg.JWT.Secret), checkoutH.CreateSession)

		orders := v1.Group("/orders", middleware.Auth(cfg.JWT.Secret))
		orders.GET("", orderH.ListOrders)
		orders.GET("/:id", orderH.GetOrder)

		admin := v1.Group("/admin", middleware.Auth(cfg.JWT.Secret))
		adminOrders := admin.Group("/orders")
		adminOrders.GET("", middleware.RequirePermission("orders:read"), adminOrderH.ListOrders)
		adminOrders.GET("/:id", middleware.RequireRole("admin", "manager"), adminOrderH.GetOrder)
		adminOrders.PUT("/:id", middleware.RequireRole("admin", "manager"), adminOrderH.UpdateOrder)
	}

	if err := orderWorker.Start(ctx); err != nil {
		log.Error("start order worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	orderWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
