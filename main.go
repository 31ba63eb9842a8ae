package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"lore-governance-system/config"
	"lore-governance-system/handlers"
	"lore-governance-system/middleware"
	"lore-governance-system/models"
	"lore-governance-system/services"
	"lore-governance-system/utils"
	"lore-governance-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.AppEnv == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.CommunityUser{},
		&models.Proposal{},
		&models.Vote{},
		&models.TokenTransaction{},
		&models.TokenSupply{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.LeaderboardEntry{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	community := config.DefaultCommunityConfig()
	locks := services.NewEntityLocks()

	notifications := services.NewNotificationService(db)
	userService := services.NewUserService(db, community, locks)
	ledger := services.NewLedgerService(db, community, locks)
	reputation := services.NewReputationService(db, community, locks, notifications)
	badges := services.NewBadgeService(db, notifications)
	moderation := services.NewModerationService(&community.Moderation)
	voting := services.NewVotingService(db, community, locks)
	leaderboard := services.NewLeaderboardService(db, community)
	workflow := services.NewWorkflowService(
		db, community, locks,
		voting, ledger, reputation, badges, userService, moderation, notifications,
	)

	if err := ledger.EnsureSupply(); err != nil {
		log.Fatalf("failed to seed token supply: %v", err)
	}
	if err := badges.SeedCatalog(); err != nil {
		log.Fatalf("failed to seed badge catalog: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := services.NewScheduler(cfg, workflow, leaderboard)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	if cfg.R2Enabled() {
		if err := utils.InitR2(cfg); err != nil {
			log.Fatalf("failed to initialize R2 client: %v", err)
		}
		exporter := workers.NewArchiveExporter(db, cfg.ArchiveExportInterval)
		go exporter.Run(ctx)
	} else {
		log.Info("R2 not configured, archive export disabled")
	}

	app := fiber.New(fiber.Config{
		AppName: "lore-governance-system",
	})

	app.Use(middleware.GatewayAuth(cfg.ServiceToken))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-User-ID, X-User-Roles, X-User-Name",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupCommunityRoutes(app, workflow, userService)
	handlers.SetupUserRoutes(app, userService, ledger, workflow, notifications)
	handlers.SetupLeaderboardRoutes(app, leaderboard)

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Errorf("server error: %v", err)
			stop()
		}
	}()
	log.Infof("governance service listening on %s", cfg.ListenAddr)

	<-ctx.Done()
	log.Info("shutting down...")
	if err := app.Shutdown(); err != nil {
		log.Errorf("shutdown error: %v", err)
	}
}
