package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"profile-service/internal/api"
	"profile-service/internal/config"
	"profile-service/internal/events"
	"profile-service/internal/repository"
	"profile-service/internal/service"
	"profile-service/internal/storage"
	"profile-service/internal/tracing"
	_ "profile-service/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	api.SetupGlobalHandler("profile-service", os.Stdout, cfg.LogLevel)

	shutdownTracer, err := tracing.InitTracerProvider("profile-service", cfg.OtelEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		}
	}()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		handleMigrations(cfg)
		return
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Successfully connected to the database.")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	eventPublisher, err := events.NewNatsPublisher(cfg.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	log.Println("Successfully connected to NATS.")

	store, err := storage.NewS3Store(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize object store client: %v", err)
	}

	profileRepo := repository.NewPostgresProfileRepository(db)
	tokenStore := repository.NewRedisLoginTokenStore(redisClient)

	imageValidator := service.NewImageValidator(cfg.AllowedImageTypes, cfg.MaxUploadBytes)
	profileService := service.NewProfileService(profileRepo, eventPublisher)
	assetService := service.NewAssetService(store, profileRepo, imageValidator, eventPublisher)
	authService := service.NewAuthService(profileRepo, tokenStore, eventPublisher, cfg.PublicSiteURL, cfg.LoginTokenTTL, cfg.SessionTokenTTL)

	profileHandler := api.NewProfileHandler(profileService, assetService, store)
	authHandler := api.NewAuthHandler(authService)

	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.MaxUploadBytes) + 1024*1024,
	})
	app.Use(otelfiber.Middleware())
	app.Use(api.PrometheusMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "profile-service"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	apiRoutes := app.Group("/api")

	authRoutes := apiRoutes.Group("/auth")
	authRoutes.Post("/login", authHandler.RequestLoginLink)
	authRoutes.Get("/verify", authHandler.VerifyLoginToken)

	profileRoutes := apiRoutes.Group("/profile", api.AuthMiddleware())
	profileRoutes.Get("/:ownerId", profileHandler.GetProfile)
	profileRoutes.Put("/:ownerId", profileHandler.UpdateProfile)

	uploadRoutes := apiRoutes.Group("/upload", api.AuthMiddleware())
	uploadRoutes.Post("/image", profileHandler.UploadImage)
	uploadRoutes.Post("/presign", profileHandler.GetUploadURL)
	uploadRoutes.Post("/confirm", profileHandler.ConfirmUpload)

	deleteRoutes := apiRoutes.Group("/delete", api.AuthMiddleware())
	deleteRoutes.Delete("/image", profileHandler.DeleteImage)

	port := cfg.AppPort
	if port == "" {
		port = "8003"
	}

	log.Printf("Listening profile-service on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

func handleMigrations(cfg *config.Config) {
	log.Println("Running database migrations...")

	db, err := sql.Open("pgx", cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("failed to connect to database for migration: %v", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set goose dialect: %v", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		log.Fatalf("goose: failed to run migrations: %v", err)
	}

	log.Println("Migrations applied successfully!")
}
