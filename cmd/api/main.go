// cmd/api/main.go
// Main entry point. Bootstraps all components and starts the server.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amoria-app/amoria-backend/internal/auth"
	"github.com/amoria-app/amoria-backend/internal/common/database"
	"github.com/amoria-app/amoria-backend/internal/common/utils"
	"github.com/amoria-app/amoria-backend/internal/config"
	"github.com/amoria-app/amoria-backend/internal/likes"
	"github.com/amoria-app/amoria-backend/internal/messaging"
	"github.com/amoria-app/amoria-backend/internal/push"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("Starting Amoria realtime API")

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (%v), using environment variables", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: ", err)
	}

	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL: ", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("Redis unavailable (%v), continuing without presence mirror", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("Connected to Redis")
		}
	}

	if err := runMigrations(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}
	log.Println("Database migrations completed")

	// Push delivery
	var pushSender push.Sender
	if cfg.EnablePushNotifications && cfg.PushProvider == "fcm" {
		fcmSender, err := push.NewFCMSender(context.Background(), cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Printf("FCM initialization failed (%v), using mock sender", err)
			pushSender = push.NewMockSender()
		} else {
			pushSender = fcmSender
			log.Println("FCM push sender initialized")
		}
	} else {
		pushSender = push.NewMockSender()
		log.Println("Using mock push sender")
	}
	tokenStore := push.NewTokenStore(db)

	// Messaging core
	messagingRepo := messaging.NewPostgresRepository(db)
	presence := messaging.NewPresenceWriter(messagingRepo, redisClient, cfg.PresenceTTL)
	registry := messaging.NewRegistry(presence)
	dispatcher := messaging.NewDispatcher(registry, pushSender, tokenStore)
	messagingService := messaging.NewService(messagingRepo, registry, dispatcher)

	// Media storage
	var mediaStorage messaging.MediaStorage
	if cfg.UseS3 {
		awsSession, err := session.NewSession(&aws.Config{
			Region: aws.String(cfg.AWSRegion),
		})
		if err != nil {
			log.Fatal("AWS session creation failed: ", err)
		}
		mediaStorage = messaging.NewS3Storage(awsSession, cfg.S3Bucket, cfg.MediaCDNURL, cfg.MaxMediaSize)
		log.Println("Using S3 for message media storage")
	} else {
		mediaStorage = messaging.NewLocalStorage()
		log.Println("Using local media storage (development mode)")
	}

	// Likes / match engine
	likesRepo := likes.NewPostgresRepository(db)
	likesService := likes.NewService(likesRepo, dispatcher, cfg.DislikeCooldown, cfg.MatchLimit)
	likesHandler := likes.NewHandler(likesService)

	messagingHandler := messaging.NewHandler(messagingService, registry, likesService, mediaStorage)

	// Auth
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(verifier)

	// Routes
	router := mux.NewRouter()
	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	messaging.RegisterRoutes(router, messagingHandler, authMiddleware.Authenticate)

	likesRouter := chi.NewRouter()
	likes.RegisterRoutes(likesRouter, likesHandler, authMiddleware)
	router.PathPrefix("/api/v1/users/").Handler(likesRouter)
	router.PathPrefix("/api/v1/favorites").Handler(likesRouter)
	router.PathPrefix("/api/v1/matches").Handler(likesRouter)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (%s)", cfg.Port, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	// Let presence writes and in-flight pushes drain
	registry.Wait()
	dispatcher.Wait()

	log.Println("Server exited gracefully")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}, http.StatusOK)
}

// loggingMiddleware logs all requests with status and duration
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		log.Printf("%s %s [%d] %v", r.Method, r.RequestURI, wrapped.statusCode, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
