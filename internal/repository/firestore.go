package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	tasksCollection    = "tasks"
	profilesCollection = "users"
)

// ConnectFirestore opens a Firestore client with the given service-account file
// and checks that the backend answers a trivial query.
func ConnectFirestore(ctx context.Context, credentialsFile, projectID string) (*firestore.Client, error) {
	if credentialsFile == "" {
		return nil, errors.New("firebase credentials are not configured")
	}

	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, cfg, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open firestore: %w", err)
	}

	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func ping(ctx context.Context, client *firestore.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	it := client.Collection(profilesCollection).Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("ping firestore: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
