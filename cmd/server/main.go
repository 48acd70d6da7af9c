package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gomoku-platform/backend/internal/ai"
	"gomoku-platform/backend/internal/auth"
	"gomoku-platform/backend/internal/db"
	"gomoku-platform/backend/internal/events"
	"gomoku-platform/backend/internal/game"
	"gomoku-platform/backend/internal/kafka"
	"gomoku-platform/backend/internal/matchmaking"
	"gomoku-platform/backend/internal/migrations"
	"gomoku-platform/backend/internal/persistence"
	"gomoku-platform/backend/internal/redis"
	gameflow "gomoku-platform/backend/internal/server/game"
	"gomoku-platform/backend/internal/server/handlers"
	"gomoku-platform/backend/internal/server/websocket"
	"gomoku-platform/backend/internal/stats"
)

// aggregatorBackoff is the pause before the matchmaking aggregator is
// restarted after a halt.
const aggregatorBackoff = 3 * time.Second

// matchPush forwards private pushes to the hub and clears the queue's
// local echo when a match-found lands, so a player can re-queue right
// after their game.
type matchPush struct {
	hub   *websocket.Hub
	queue *handlers.Queue
}

func (p matchPush) SendToUser(userID, destination string, payload interface{}) {
	if destination == "/user/queue/match-found" {
		p.queue.Forget(userID)
	}
	p.hub.SendToUser(userID, destination, payload)
}

func main() {
	cfg := LoadConfig()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := migrations.RunMigrations(cfg.DBConfig); err != nil {
		log.Fatal("Migrations failed:", err)
	}

	database, err := db.New(cfg.DBConfig)
	if err != nil {
		log.Fatal("Database connection failed:", err)
	}
	sqlDB, err := database.DB.DB()
	if err != nil {
		log.Fatal("Failed to get database connection:", err)
	}
	defer sqlDB.Close()

	rdb, err := redis.New(cfg.RedisConfig)
	if err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	defer rdb.Close()

	if err := kafka.EnsureTopics(cfg.KafkaBrokers, cfg.EventPartitions, cfg.EventRetention); err != nil {
		log.Fatal("Topic provisioning failed:", err)
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry, cfg.JWTRefreshExpiry)

	hub := websocket.NewHub()
	store := game.NewStore(cfg.SessionTTL)
	aiClient := ai.NewClient(cfg.AIServiceURL, cfg.AITimeout)
	gameService := gameflow.NewService(store, producer, hub, aiClient, cfg.AITimeout)

	// The janitor broadcasts the terminal state and mirrors it to the
	// event log before the session is evicted.
	store.SetOnAbandoned(gameService.HandleAbandoned)
	store.StartSweeper()
	defer store.Stop()

	queue := handlers.NewQueue(producer)
	notifier := matchmaking.NewNotifier(store, matchPush{hub: hub, queue: queue})
	persist := persistence.NewConsumer(database)
	statsUpdater := stats.NewUpdater(database)

	// Consumers stop when this context is cancelled during shutdown.
	consumerCtx, stopConsumers := context.WithCancel(context.Background())

	matchNotify := kafka.NewGroupConsumer(cfg.KafkaBrokers, events.TopicMatchMade, "gomoku-notifier")
	persistMatches := kafka.NewGroupConsumer(cfg.KafkaBrokers, events.TopicMatchMade, "gomoku-persistence")
	persistMoves := kafka.NewGroupConsumer(cfg.KafkaBrokers, events.TopicGameMoves, "gomoku-persistence")
	statsMoves := kafka.NewGroupConsumer(cfg.KafkaBrokers, events.TopicGameMoves, "gomoku-stats")

	go matchNotify.Run(consumerCtx, notifier.HandleMatchCreated)
	go persistMatches.Run(consumerCtx, persist.HandleMatchCreated)
	go persistMoves.Run(consumerCtx, persist.HandleGameMove)
	go statsMoves.Run(consumerCtx, statsUpdater.HandleGameMove)

	go superviseAggregator(consumerCtx, cfg, rdb, producer)

	wsRouter := websocket.NewRouter(hub, authService, gameService)

	r := gin.Default()

	// Configure CORS using gin-contrib/cors
	corsConfig := cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // Allow all origins
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400 * time.Second,
	}
	r.Use(cors.New(corsConfig))

	// Public routes
	r.POST("/api/auth/register", func(c *gin.Context) { handlers.HandleRegister(c, database, authService) })
	r.POST("/api/auth/login", func(c *gin.Context) { handlers.HandleLogin(c, database, authService) })
	r.POST("/api/auth/refresh", func(c *gin.Context) { handlers.HandleRefresh(c, database, authService) })

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		redisStatus := "up"
		if err := rdb.HealthCheck(c.Request.Context()); err != nil {
			redisStatus = "down"
			status = http.StatusServiceUnavailable
		}
		dbStatus := "up"
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			dbStatus = "down"
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"redis":       redisStatus,
			"database":    dbStatus,
			"liveGames":   store.Len(),
			"connections": hub.ConnectionCount(),
			"producer":    producer.Stats(),
		})
	})

	// Protected routes
	authorized := r.Group("/")
	authorized.Use(handlers.AuthMiddleware(authService))
	{
		authorized.POST("/api/game/create", func(c *gin.Context) { handlers.HandleCreateGame(c, database, gameService) })
		authorized.GET("/api/game/:id", func(c *gin.Context) { handlers.HandleGetGame(c, gameService) })
		authorized.POST("/api/game/:id/move", func(c *gin.Context) { handlers.HandleMove(c, gameService) })
		authorized.POST("/api/game/:id/forfeit", func(c *gin.Context) { handlers.HandleForfeit(c, gameService) })
		authorized.GET("/api/game/:id/moves", func(c *gin.Context) { handlers.HandleListMoves(c, persist) })

		authorized.POST("/api/matchmaking/queue", queue.HandleJoin)
		authorized.DELETE("/api/matchmaking/queue", queue.HandleLeave)
		authorized.GET("/api/matchmaking/status", queue.HandleStatus)

		authorized.GET("/api/stats/me", func(c *gin.Context) { handlers.HandleMyStats(c, statsUpdater) })
		authorized.GET("/api/leaderboard", func(c *gin.Context) { handlers.HandleLeaderboard(c, statsUpdater) })
	}

	// WebSocket endpoint (handles auth internally)
	r.GET("/ws", wsRouter.HandleWebSocket)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	// Stop accepting requests first, then consumers, then flush the
	// producer so in-flight shadow publishes land before the writer
	// closes. Database and Redis close via the deferred handles.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}

	stopConsumers()
	matchNotify.Close()
	persistMatches.Close()
	persistMoves.Close()
	statsMoves.Close()

	if err := producer.Close(); err != nil {
		log.Printf("Producer close: %v", err)
	}
	log.Println("Shutdown complete")
}

// superviseAggregator runs the matchmaking fold and restarts it from the
// last committed snapshot whenever it halts.
func superviseAggregator(ctx context.Context, cfg Config, rdb *redis.Client, producer *kafka.Producer) {
	stateStore := matchmaking.NewStateStore(rdb.Client)

	for {
		if ctx.Err() != nil {
			return
		}

		state, offset, err := stateStore.Load(ctx)
		if err != nil {
			log.Printf("[MATCHMAKING] State recovery failed: %v", err)
		} else {
			source, err := kafka.NewPartitionConsumer(cfg.KafkaBrokers, events.TopicQueueEvents, 0, offset+1)
			if err != nil {
				log.Printf("[MATCHMAKING] Queue reader failed: %v", err)
			} else {
				agg := matchmaking.NewAggregator(source, stateStore, producer, state)
				if err := agg.Run(ctx); err != nil {
					log.Printf("[MATCHMAKING] Aggregator stopped: %v", err)
				}
				source.Close()
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(aggregatorBackoff):
		}
	}
}
