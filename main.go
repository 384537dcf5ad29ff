package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	api "taskflow-backend/cmd/api"
	authdomain "taskflow-backend/internal/auth/domain"
	authRepo "taskflow-backend/internal/auth/repository"
	authUsecase "taskflow-backend/internal/auth/usecase"
	"taskflow-backend/internal/notification"
	taskRepo "taskflow-backend/internal/task/repository"
	taskUsecase "taskflow-backend/internal/task/usecase"
	"taskflow-backend/pkg/clock"
	"taskflow-backend/pkg/config"
	"taskflow-backend/pkg/database"
	"taskflow-backend/pkg/fcm"
)

func main() {
	// Load configuration
	cfg := config.Load()
	loc := cfg.Location()
	clk := clock.Real()

	// Initialize database
	db, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas (tasks migrate in their repository)
	if err := db.AutoMigrate(&authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.FCMToken{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	tasks, err := taskRepo.NewGormTaskRepository(db)
	if err != nil {
		log.Fatal("Failed to initialize task repository:", err)
	}

	// Initialize use cases (dependency injection)
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, fcmTokenRepo, cfg)
	taskUsecaseInstance := taskUsecase.NewTaskUsecase(tasks, clk, loc)
	plannerUsecaseInstance := taskUsecase.NewPlannerUsecase(tasks, clk, loc, api.GetRuntimeDailyCapacity)

	// Task events: Pub/Sub stream and FCM reflection prompts, each optional
	ctx := context.Background()
	var publisher notification.Publisher
	if cfg.GoogleProjectID != "" {
		pub, err := notification.NewPubSubPublisher(ctx, cfg.GoogleProjectID, cfg.TaskEventsTopic, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize Pub/Sub publisher (task events disabled): %v", err)
		} else {
			defer pub.Close()
			publisher = pub
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, task events disabled")
	}

	var push notification.PushSender
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(ctx, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			push = fcmClient
		}
	} else {
		log.Printf("[WARN] No Firebase credentials configured, FCM disabled")
	}

	var notifier *notification.Service
	if publisher != nil || push != nil {
		notifier = notification.NewService(publisher, push, fcmTokenRepo, clk)
		taskUsecaseInstance.SetNotifier(notifier)
		plannerUsecaseInstance.SetNotifier(notifier)
	}

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, taskUsecaseInstance, plannerUsecaseInstance, cfg)

	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("Server starting on port %s (storage=%s, timezone=%s)", cfg.Port, cfg.Storage, loc)
	serveErr := handler.Start(stop, ":"+cfg.Port)

	if notifier != nil {
		log.Println("Waiting for pending task notifications...")
		notifier.Wait()
	}
	if serveErr != nil {
		log.Fatal("Server stopped:", serveErr)
	}
}
