// Package main запускает сервис мониторинга когнитивного состояния
// водителя по данным ЭЭГ. Сервис реализует:
// - HTTP API для приема окон ЭЭГ от стримера
// - Спектральный конвейер (Welch PSD, мощности полос, отношения)
// - Классификацию состояния и оценку усталости относительно базовой линии
// - Кэширование точек, сессий и тревог в Redis
// - Рассылку событий по WebSocket
// - Экспорт метрик в Prometheus
package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"neurodrive-service/internal/cache"
	"neurodrive-service/internal/cognitive"
	"neurodrive-service/internal/handlers"
	"neurodrive-service/internal/hub"
	"neurodrive-service/internal/metrics"
	"neurodrive-service/internal/session"
)

// Config содержит конфигурацию сервиса
type Config struct {
	ServerAddr    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RequireBaseline    bool
	CalibrationSamples int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func main() {
	log.Println("Starting NeuroDrive Service...")
	log.Printf("Go version: %s", runtime.Version())
	log.Printf("NumCPU: %d", runtime.NumCPU())

	cfg := loadConfig()

	// Конфигурация классификатора общая для всех сессий
	classifierCfg := cognitive.DefaultConfig()
	classifierCfg.RequireBaseline = cfg.RequireBaseline
	classifierCfg.MinCalibrationSamples = cfg.CalibrationSamples
	sessions := session.NewManager(classifierCfg)

	// Диспетчер WebSocket-подключений
	wsHub := hub.NewHub()
	go wsHub.Run()

	// Пробуем подключиться к Redis с повторами
	var redisCache *cache.RedisCache
	var err error
	for i := 0; i < 5; i++ {
		redisCache, err = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			log.Printf("Connected to Redis at %s", cfg.RedisAddr)
			break
		}
		log.Printf("Redis connection attempt %d failed: %v", i+1, err)
		if i < 4 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis, running without storage: %v", err)
		redisCache = nil
	}

	handler := handlers.NewHandler(sessions, redisCache, wsHub)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()

	// Конвейер ЭЭГ
	api.HandleFunc("/eeg/stream", handler.StreamEEGHandler).Methods("POST")
	api.HandleFunc("/eeg/window", handler.WindowHandler).Methods("POST")

	// Сессии
	api.HandleFunc("/sessions", handler.CreateSessionHandler).Methods("POST")
	api.HandleFunc("/sessions", handler.ListSessionsHandler).Methods("GET")
	api.HandleFunc("/sessions/{id}", handler.GetSessionHandler).Methods("GET")
	api.HandleFunc("/sessions/{id}", handler.UpdateSessionHandler).Methods("PATCH")
	api.HandleFunc("/sessions/{id}", handler.DeleteSessionHandler).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/complete", handler.CompleteSessionHandler).Methods("POST")
	api.HandleFunc("/sessions/{id}/calibrate", handler.CalibrateSessionHandler).Methods("POST")
	api.HandleFunc("/sessions/{id}/eeg", handler.SessionEEGHandler).Methods("GET")
	api.HandleFunc("/sessions/{id}/export", handler.ExportSessionHandler).Methods("GET")

	// Тревоги
	api.HandleFunc("/alerts", handler.ListAlertsHandler).Methods("GET")
	api.HandleFunc("/alerts/{id}/ack", handler.AcknowledgeAlertHandler).Methods("POST")

	// WebSocket
	api.HandleFunc("/ws/session/{id}", handler.WSSessionHandler).Methods("GET")
	api.HandleFunc("/ws", handler.WSHandler).Methods("GET")

	// Служебные эндпоинты
	router.HandleFunc("/health", handler.HealthHandler).Methods("GET")
	router.HandleFunc("/stats", handler.StatsHandler).Methods("GET")
	router.Handle("/prometheus", promhttp.Handler())
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	router.Use(loggingMiddleware)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go updateMetricsLoop(sessions, wsHub)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on %s", cfg.ServerAddr)
		log.Printf("Endpoints:")
		log.Printf("  POST  /api/v1/eeg/stream          - Ingest EEG stream payload")
		log.Printf("  POST  /api/v1/eeg/window          - Classify a single raw window")
		log.Printf("  CRUD  /api/v1/sessions            - Monitoring sessions")
		log.Printf("  GET   /api/v1/alerts              - Fatigue alerts")
		log.Printf("  WS    /api/v1/ws[/session/{id}]   - Live event stream")
		log.Printf("  GET   /health /stats /prometheus  - Service endpoints")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Сначала выводим сервер из приема запросов, потом гасим зависимости
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	wsHub.Stop()

	if redisCache != nil {
		redisCache.Close()
	}

	log.Println("Server stopped")
}

// loadConfig загружает конфигурацию из переменных окружения
func loadConfig() Config {
	return Config{
		ServerAddr:         getEnv("SERVER_ADDR", ":8080"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RequireBaseline:    getEnvBool("REQUIRE_BASELINE", false),
		CalibrationSamples: getEnvInt("CALIBRATION_SAMPLES", cognitive.DefaultCalibrationSamples),
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
	}
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool получает булеву переменную окружения
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// loggingMiddleware логирует HTTP запросы
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// updateMetricsLoop периодически обновляет сводные метрики Prometheus
func updateMetricsLoop(sessions *session.Manager, wsHub *hub.Hub) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		metrics.ActiveSessions.Set(float64(sessions.Count()))
		metrics.WSClients.Set(float64(wsHub.ClientCount()))
		metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))
	}
}
