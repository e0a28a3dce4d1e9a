package main

import (
	"log"
	"net/http"
	"time"

	"earnspark-server/config"
	"earnspark-server/gateway"
	"earnspark-server/handlers/auth"
	"earnspark-server/handlers/payments"
	"earnspark-server/handlers/tasks"
	"earnspark-server/handlers/withdrawals"
	"earnspark-server/migrations"
	"earnspark-server/pkg/logger"
	"earnspark-server/seed"
	"earnspark-server/store"
	"earnspark-server/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// setupRouter wires the middleware stack and every route. Preflight
// requests answer 200 and unmapped methods answer 405.
func setupRouter(cfg *config.Config, db *gorm.DB, gatewayClient gateway.Client, appLogger *logger.Logger) *gin.Engine {
	intentStore := store.NewIntentStore(db)

	authHandler := auth.NewHandler(cfg, db, appLogger)
	taskHandler := tasks.NewHandler(db, appLogger)
	paymentHandler := payments.NewHandler(cfg, gatewayClient, intentStore, db, appLogger)
	withdrawalHandler := withdrawals.NewHandler(cfg, db, appLogger)

	r := gin.Default()
	r.HandleMethodNotAllowed = true

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:             []string{"Content-Length"},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}))

	api := r.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		api.POST("/payments/initiate", paymentHandler.Initiate)
		api.GET("/payments/status", paymentHandler.Status)

		api.GET("/tasks", taskHandler.List)
	}

	protected := r.Group("/api")
	protected.Use(auth.Middleware(cfg, db))
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.POST("/tasks/:id/complete", taskHandler.Complete)
		protected.POST("/withdrawals", withdrawalHandler.Create)
		protected.GET("/withdrawals", withdrawalHandler.List)
	}

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Server.LogLevel)
	appLogger.Info("Starting EarnSpark server")

	if err := cfg.ValidateDatabase(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := utils.ConnectDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := migrations.Run(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := seed.SeedTasks(db); err != nil {
		log.Fatalf("Failed to seed tasks: %v", err)
	}

	gatewayClient, err := gateway.New(&cfg.Provider, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize payment gateway: %v", err)
	}

	r := setupRouter(cfg, db, gatewayClient, appLogger)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	appLogger.Info("HTTP server starting", "address", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start the server: %v", err)
	}
}
