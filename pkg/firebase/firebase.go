package firebase

import (
	"context"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// App holds the initialized Firebase app and the clients the pipeline uses
type App struct {
	FirebaseApp *firebase.App
	Firestore   *firestore.Client
	Messaging   *messaging.Client
}

// InitFirebase initializes the Firebase application with its Firestore and
// Cloud Messaging clients
func InitFirebase(ctx context.Context, credentialsPath string) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("Firebase credentials path not provided")
	}

	// Check if the credentials file exists
	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("Firebase credentials file not found at %s", credentialsPath)
	}

	opt := option.WithCredentialsFile(credentialsPath)

	firebaseApp, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	firestoreClient, err := firebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}

	messagingClient, err := firebaseApp.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase messaging client: %w", err)
	}

	log.Println("Firebase app, firestore and messaging clients initialized successfully!")
	return &App{
		FirebaseApp: firebaseApp,
		Firestore:   firestoreClient,
		Messaging:   messagingClient,
	}, nil
}

// Close releases the Firestore client connection
func (a *App) Close() {
	if a.Firestore != nil {
		if err := a.Firestore.Close(); err != nil {
			log.Printf("Error closing firestore client: %v\n", err)
		}
	}
}
