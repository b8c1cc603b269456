package main

import (
	"context"
	"log"
	"time"

	"github.com/Pranavsr23/PetalPost/internal/capsule"
	"github.com/Pranavsr23/PetalPost/internal/notify"
	"github.com/Pranavsr23/PetalPost/internal/router"
	"github.com/Pranavsr23/PetalPost/internal/store"
	"github.com/Pranavsr23/PetalPost/pkg/config"
	"github.com/Pranavsr23/PetalPost/pkg/firebase"
	"github.com/Pranavsr23/PetalPost/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize Firebase (messaging always, firestore when it backs the store)
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}
	defer firebaseApp.Close()

	// Select the document store backend
	var st store.Store
	switch cfg.StoreBackend {
	case "firestore":
		st = store.NewFirestoreStore(firebaseApp.Firestore)
	case "mongo":
		mongoClient, err := config.InitMongo(cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer config.CloseMongo(mongoClient)
		st = store.NewMongoStore(mongoClient.Database(cfg.MongoDatabase))
	case "memory":
		log.Println("Using in-memory store; state is lost on restart.")
		st = store.NewMemoryStore()
	default:
		log.Fatalf("Unknown store backend: %s", cfg.StoreBackend)
	}

	sender := notify.NewFCMSender(firebaseApp.Messaging)

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	sweeper := router.SetupRoutes(e, st, sender, cfg.HookSecret)

	// Validator
	e.Validator = validators.NewValidator()

	// Run the sweep on an internal ticker when no external scheduler is
	// configured to hit the job endpoint.
	if cfg.SweepInterval > 0 {
		go runSweepLoop(sweeper, cfg.SweepInterval)
	}

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

func runSweepLoop(sweeper *capsule.Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := sweeper.Run(context.Background()); err != nil {
			log.Printf("Time capsule sweep failed: %v", err)
		}
	}
}
