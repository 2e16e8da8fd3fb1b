package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"pingline/internal/adapter/api"
	"pingline/internal/adapter/api/handler"
	apimiddleware "pingline/internal/adapter/api/middleware"
	"pingline/internal/adapter/api/router"
	"pingline/internal/adapter/repository"
	"pingline/internal/infrastructure/firebase"
	"pingline/internal/infrastructure/push"
	"pingline/internal/infrastructure/ratelimit"
	"pingline/internal/infrastructure/storage"
	"pingline/internal/infrastructure/websocket"
	"pingline/internal/usecase"
	"pingline/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opt option.ClientOption
	credentialsPath := ""

	// Service account from environment variable (production) or file path
	// (local development).
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
	} else {
		credentialsPath = os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
		if credentialsPath == "" {
			credentialsPath = "./serviceAccountKey.json"
		}
		if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", credentialsPath)
		}
		log.Printf("Using Firebase service account from file: %s", credentialsPath)
		opt = option.WithCredentialsFile(credentialsPath)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, credentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer storageClient.Close()

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	chatroomRepo := repository.NewFirestoreChatroomRepository(firestoreClient)
	messageRepo := repository.NewFirestoreMessageRepository(firestoreClient)
	pushSubRepo := repository.NewFirestorePushSubscriptionRepository(firestoreClient)

	firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient, cfg.FirebaseApiKey)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()
	ipLimiter := ratelimit.NewRateLimiter()
	ipLimiter.StartCleanupRoutine()

	// VAPID keys from env, generated and persisted on first start otherwise.
	vapidPublic, vapidPrivate := cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey
	if vapidPublic == "" || vapidPrivate == "" {
		keys, err := push.EnsureVAPIDKeys("")
		if err != nil {
			log.Printf("Warning: could not provision VAPID keys, push disabled: %v", err)
		} else {
			vapidPublic, vapidPrivate = keys.PublicKey, keys.PrivateKey
		}
	}
	notifier := push.NewNotifier(pushSubRepo, vapidPublic, vapidPrivate, cfg.VAPIDSubject)

	authUseCase := usecase.NewAuthUseCase(userRepo, firebaseAuthClient)
	userUseCase := usecase.NewUserUseCase(userRepo)
	chatroomUseCase := usecase.NewChatroomUseCase(chatroomRepo, userRepo, rateLimiter)
	messageUseCase := usecase.NewMessageUseCase(messageRepo, chatroomRepo, userRepo, wsManager, notifier, rateLimiter, cfg.MessagePageSize)

	handler.Setup(authUseCase, userUseCase, chatroomUseCase, messageUseCase)
	handler.SetupFileHandler(storageClient)
	handler.SetupPushHandler(pushSubRepo, vapidPublic)
	handler.SetupHealthHandler()

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)
	wsHandler := handler.NewWebSocketHandler(wsManager, authMiddleware, messageUseCase)

	router.Setup(e, authMiddleware, ipLimiter)
	router.SetupWebSocketRouter(e, wsHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
