package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"combo-arena-system/handlers"
	"combo-arena-system/middleware"
	"combo-arena-system/models"
	"combo-arena-system/services"
	"combo-arena-system/sockets"
	"combo-arena-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-Device-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Player{},
		&models.SkillVariant{},
		&models.Combo{},
		&models.ComboElement{},
		&models.Challenge{},
		&models.Match{},
		&models.MatchPlayerData{},
		&models.Notification{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	clock := clockwork.NewRealClock()
	store := services.NewGormStore(db)
	hub := sockets.NewHub()

	matchmaker := services.NewMatchmaker(clock)
	matchService := services.NewMatchService(store, store, store, hub, clock)
	challengeService := services.NewChallengeService(store, store, store, matchService, hub, clock)
	rankedService := services.NewRankedService(matchmaker, store, store, matchService, hub, clock)
	playerService := services.NewPlayerService(store, clock)

	gateway := sockets.NewGateway(hub, rankedService, challengeService)

	// Re-arm expiry timers for challenges that were pending when the
	// process last went down. Already-overdue ones fire immediately.
	var pending []models.Challenge
	if err := db.Where("status = ?", models.ChallengePending).Find(&pending).Error; err != nil {
		log.Fatal("failed to load pending challenges:", err)
	}
	for i := range pending {
		challengeService.ScheduleExpiry(&pending[i])
	}
	if len(pending) > 0 {
		log.Printf("⏲️  Re-armed expiry timers for %d pending challenge(s)", len(pending))
	}

	sweep, err := challengeService.StartExpirySweep()
	if err != nil {
		log.Fatal("failed to start expiry sweep:", err)
	}

	// --- CONFIGURE Sync Service Details for Players ---
	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("ARENA_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("ARENA_SERVICE_TOKEN environment variable not set")
	}
	// --- END CONFIG ---

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewPlayerSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)
	syncWorker.Start(ctx)

	// ✅ Setup routes — enforced Gateway auth + user context on secured groups
	handlers.SetupChallengeRoutes(app, challengeService)
	handlers.SetupArenaRoutes(app, playerService, gateway)

	go func() {
		if err := app.Listen(":5200"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5200")
	log.Println("✅ Player Sync Worker running")
	log.Println("✅ Challenge expiry sweep running (every 15s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	_ = sweep.Shutdown()
	_ = app.Shutdown()
}
