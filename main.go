package main

import (
	"context"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/staynest/backend/internal/client"
	"github.com/staynest/backend/internal/config"
	"github.com/staynest/backend/internal/db"
	"github.com/staynest/backend/internal/handler"
	"github.com/staynest/backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] no .env file found, using process environment")
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("[MAIN] postgres init failed: %v", err)
	}
	defer pool.Close()

	repo := db.NewPostgres(pool)
	if err := repo.EnsureUserSchema(ctx); err != nil {
		log.Fatalf("[MAIN] user schema init failed: %v", err)
	}
	if err := repo.EnsureCartSchema(ctx); err != nil {
		log.Fatalf("[MAIN] cart schema init failed: %v", err)
	}

	tokens, err := service.NewTokenService(cfg.Auth)
	if err != nil {
		log.Fatalf("[MAIN] token service init failed: %v", err)
	}

	consumedStore := newConsumedTokenStore(ctx, cfg)
	mailer := client.NewMailer(cfg.Mailer)
	authService := service.NewAuthService(repo, tokens, consumedStore, mailer)

	cartService, err := service.NewCartService(repo, cfg.Cart.HoldTTL, cfg.Cart.MaxItems)
	if err != nil {
		log.Fatalf("[MAIN] cart service init failed: %v", err)
	}

	sweeper, err := service.NewCartSweeper(repo, cfg.Cart.SweepEvery)
	if err != nil {
		log.Fatalf("[MAIN] cart sweeper init failed: %v", err)
	}
	sweeper.Start(ctx)

	router := gin.Default()
	router.Use(handler.CORSMiddleware(strings.Split(cfg.Server.AllowedOrigins, ","), true))

	router.GET("/ping", handler.Ping)
	router.GET("/", handler.OptionalAuthMiddleware(tokens), handler.Root)

	authHandler := handler.NewAuthHandler(authService)
	cartHandler := handler.NewCartHandler(cartService)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", handler.AuthMiddleware(tokens), authHandler.Me)

		cart := api.Group("/cart", handler.AuthMiddleware(tokens))
		cart.GET("", cartHandler.List)
		cart.POST("", cartHandler.Add)
		cart.DELETE("", cartHandler.Clear)
		cart.GET("/summary", cartHandler.Summary)
		cart.PUT("/:itemId", cartHandler.Update)
		cart.DELETE("/:itemId", cartHandler.Remove)

		admin := api.Group("/admin", handler.AuthMiddleware(tokens), handler.RequireAdmin(authService))
		admin.GET("/users", authHandler.ListUsers)
	}

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("[MAIN] server stopped: %v", err)
	}
}

func newConsumedTokenStore(ctx context.Context, cfg config.Config) service.ConsumedTokenStore {
	if cfg.Redis.Addr == "" {
		log.Println("[MAIN] REDIS_URL not set; reset-token single use is log-only")
		return db.NewLogConsumedTokens()
	}
	redisClient, err := db.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Printf("[MAIN] redis unavailable (%v); reset-token single use is log-only", err)
		return db.NewLogConsumedTokens()
	}
	return db.NewRedisConsumedTokens(redisClient)
}
