package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"teamwire-backend/internal/database"
	callHandler "teamwire-backend/internal/handler/http/call"
	chatHandler "teamwire-backend/internal/handler/http/chat"
	presenceHandler "teamwire-backend/internal/handler/http/presence"
	wsHandler "teamwire-backend/internal/handler/ws"
	"teamwire-backend/internal/middleware"
	"teamwire-backend/internal/realtime"
	"teamwire-backend/internal/repository/cassandra"
	"teamwire-backend/internal/repository/cockroach"
	redisRepo "teamwire-backend/internal/repository/redis"
	callService "teamwire-backend/internal/service/call"
	chatService "teamwire-backend/internal/service/chat"
	"teamwire-backend/pkg/constants"
	"teamwire-backend/pkg/env"
	"teamwire-backend/pkg/jwt"
	"teamwire-backend/pkg/logger"
	"teamwire-backend/pkg/metrics"
)

func main() {
	ctx := context.Background()

	// 1. Logger
	logger.InitDefault()
	defer logger.Sync()

	// 2. JWT Manager
	jwtSecret := env.GetStringFromFile("JWT_SECRET", "")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		logger.Fatal("JWT_SECRET must be at least 32 characters")
	}
	jwtManager := jwt.NewJWTManager(jwtSecret, constants.AccessTokenExpiry, constants.RefreshTokenExpiry)

	// 3. CockroachDB for calls and users
	db, err := database.NewCockroachDB(ctx, &database.CockroachConfig{
		Host:     env.GetString("DB_HOST", "localhost"),
		Port:     env.GetInt("DB_PORT", 26257),
		User:     env.GetString("DB_USER", "root"),
		Password: env.GetStringFromFile("DB_PASSWORD", ""),
		Database: env.GetString("DB_NAME", "teamwire"),
		SSLMode:  env.GetString("DB_SSL_MODE", "disable"),
	})
	if err != nil {
		logger.Fatal("failed to connect to CockroachDB", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to CockroachDB")

	// 4. Cassandra for message history
	cassandraDB, err := database.NewCassandraDB(&database.CassandraConfig{
		Hosts:    strings.Split(env.GetString("CASSANDRA_HOSTS", "localhost"), ","),
		Keyspace: env.GetString("CASSANDRA_KEYSPACE", "teamwire"),
		Username: env.GetString("CASSANDRA_USER", ""),
		Password: env.GetStringFromFile("CASSANDRA_PASSWORD", ""),
	})
	if err != nil {
		logger.Fatal("failed to connect to Cassandra", zap.Error(err))
	}
	defer cassandraDB.Close()
	logger.Info("connected to Cassandra")

	// 5. Redis for presence and pub/sub fan-out
	redisDB, err := database.NewRedisDB(&database.RedisConfig{
		Host:     env.GetString("REDIS_HOST", "localhost"),
		Port:     env.GetInt("REDIS_PORT", 6379),
		Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
		DB:       0,
		PoolSize: 10,
		Timeout:  5 * time.Second,
	})
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisDB.Close()
	redisDB.StartHealthCheck(ctx, 10*time.Second)
	logger.Info("connected to Redis")

	// 6. Repositories
	callRepo := cockroach.NewCallRepository(db.Pool)
	userRepo := cockroach.NewUserRepository(db.Pool)
	messageRepo := cassandra.NewMessageRepository(cassandraDB.Session)
	presenceRepo := redisRepo.NewPresenceRepository(redisDB)

	// 7. Metrics
	appMetrics := metrics.NewMetrics("realtime-service")
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 8. Realtime core
	registry := realtime.NewRegistry()
	rooms := realtime.NewRooms(logger.Log)
	relay := realtime.NewRelay(registry, rooms, logger.Log)
	notifier := realtime.NewRedisNotifier(redisDB.Client, logger.Log)

	// 9. Services
	callSvc := callService.NewService(callRepo, userRepo, notifier, appMetrics, logger.Log)
	chatSvc := chatService.NewService(messageRepo, userRepo, notifier, appMetrics, logger.Log)

	// 10. WebSocket hub + handlers
	hub := wsHandler.NewHub(registry, rooms, relay, notifier, callSvc, presenceRepo, redisDB.Client, appMetrics, logger.Log)
	wsHdlr := wsHandler.NewHandler(hub, userRepo, logger.Log)
	callHdlr := callHandler.NewHandler(callSvc)
	chatHdlr := chatHandler.NewHandler(chatSvc)
	presenceHdlr := presenceHandler.NewHandler(presenceRepo)

	// 11. Router
	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	trustedProxies := []string{"127.0.0.1"}
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		trustedProxies = strings.Split(proxies, ",")
	}
	router.SetTrustedProxies(trustedProxies)

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())
	router.Use(prometheusMiddleware.Handler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "realtime-service",
			"redis":   map[string]bool{"degraded": redisDB.IsDegraded()},
			"time":    time.Now().UTC(),
		})
	})
	router.GET("/metrics", middleware.MetricsHandler())

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtManager))
	{
		v1.GET("/ws", wsHdlr.ServeWS)

		calls := v1.Group("/calls")
		{
			calls.POST("", callHdlr.StartCall)
			calls.GET("/active", callHdlr.GetActiveCall)
			calls.GET("/mine", callHdlr.GetMyCalls)
			calls.GET("/:id", callHdlr.GetCall)
			calls.POST("/:id/join", callHdlr.JoinCall)
			calls.POST("/:id/leave", callHdlr.LeaveCall)
			calls.POST("/:id/end", callHdlr.EndCall)
		}

		messages := v1.Group("/messages")
		{
			messages.POST("", chatHdlr.SendMessage)
			messages.GET("", chatHdlr.GetMessages)
		}

		presence := v1.Group("/presence")
		{
			presence.GET("/online", presenceHdlr.GetOnlineUsers)
			presence.GET("/:id", presenceHdlr.GetUserPresence)
		}
	}

	// 12. Serve with graceful shutdown
	port := env.GetString("PORT", "8084")
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: router,
	}

	go func() {
		logger.Info("realtime service starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, constants.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
