package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spacecraft-telemetry-analyzer/internal/cache"
	"spacecraft-telemetry-analyzer/internal/handlers"
	"spacecraft-telemetry-analyzer/internal/metrics"
	"spacecraft-telemetry-analyzer/internal/profile"
	"spacecraft-telemetry-analyzer/internal/session"
	"spacecraft-telemetry-analyzer/internal/summary"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.Println("Starting Spacecraft Telemetry Analyzer...")

	// Конфигурация из .env и environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}
	config := loadConfig()

	// Инициализация Redis (опционально: пустой адрес отключает персистентность)
	var redisStore *cache.RedisStore
	if config.RedisAddr != "" {
		var err error
		redisStore, err = cache.NewRedisStore(
			config.RedisAddr,
			config.RedisPassword,
			config.RedisDB,
			config.SnapshotTTL,
		)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisStore.Close()
		log.Println("Connected to Redis")
	} else {
		log.Println("Redis disabled, user profiles will not survive restarts")
	}

	// Хранилище профилей: встроенные + пользовательские из Redis
	var persist profile.Persistence
	if redisStore != nil {
		persist = redisStore
	}
	profiles, err := profile.NewStore(persist)
	if err != nil {
		log.Fatalf("Failed to initialize profile store: %v", err)
	}
	log.Printf("Profile store ready: %d profiles\n", len(profiles.List()))

	// Реестр сессий
	sessions := session.NewRegistry()

	// Конфигурация классификации состояния
	health := summary.HealthConfig{
		WarningPercent:  config.WarningPercent,
		CriticalPercent: config.CriticalPercent,
	}

	// Инициализация HTTP handlers
	handler := handlers.NewHandler(sessions, profiles, redisStore, health)

	// Настройка HTTP router
	mux := handler.Routes()

	// Prometheus metrics endpoint
	mux.Handle("GET /prometheus", promhttp.Handler())

	// HTTP сервер
	server := &http.Server{
		Addr:         ":" + config.ServerPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server listening on port %s\n", config.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Периодическое обновление метрик
	go updateMetrics(sessions)

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}

// Config конфигурация приложения
type Config struct {
	ServerPort      string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SnapshotTTL     time.Duration
	WarningPercent  float64
	CriticalPercent float64
}

// loadConfig загружает конфигурацию из environment
func loadConfig() Config {
	return Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		SnapshotTTL:     time.Duration(getEnvAsInt("SNAPSHOT_TTL_HOURS", 24)) * time.Hour,
		WarningPercent:  getEnvAsFloat("HEALTH_WARNING_PERCENT", 5.0),
		CriticalPercent: getEnvAsFloat("HEALTH_CRITICAL_PERCENT", 20.0),
	}
}

// getEnv получает environment variable или возвращает default
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt получает environment variable как int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat получает environment variable как float64
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var value float64
	if _, err := fmt.Sscanf(valueStr, "%f", &value); err != nil {
		return defaultValue
	}
	return value
}

// updateMetrics периодически обновляет метрики
func updateMetrics(sessions *session.Registry) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		metrics.ActiveSessions.Set(float64(sessions.Count()))
	}
}
