package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"study-planner/internal/model"
)

// FirestoreProfileRepository stores profiles in the "users" collection keyed by uid.
type FirestoreProfileRepository struct {
	client *firestore.Client
}

func NewFirestoreProfileRepository(client *firestore.Client) *FirestoreProfileRepository {
	return &FirestoreProfileRepository{client: client}
}

func (r *FirestoreProfileRepository) Get(ctx context.Context, uid string) (model.Profile, bool, error) {
	doc, err := r.client.Collection(profilesCollection).Doc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return model.Profile{}, false, nil
		}
		return model.Profile{}, false, fmt.Errorf("get profile: %w", err)
	}
	var profile model.Profile
	if err := doc.DataTo(&profile); err != nil {
		return model.Profile{}, false, fmt.Errorf("decode profile %s: %w", uid, err)
	}
	return profile, true, nil
}

func (r *FirestoreProfileRepository) Put(ctx context.Context, profile model.Profile) error {
	if _, err := r.client.Collection(profilesCollection).Doc(profile.UID).Set(ctx, profile); err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (r *FirestoreProfileRepository) Delete(ctx context.Context, uid string) error {
	if _, err := r.client.Collection(profilesCollection).Doc(uid).Delete(ctx); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (r *FirestoreProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	return r.query(ctx, r.client.Collection(profilesCollection).Query)
}

func (r *FirestoreProfileRepository) Top(ctx context.Context, n int) ([]model.Profile, error) {
	if n <= 0 {
		return nil, nil
	}
	return r.query(ctx, r.client.Collection(profilesCollection).OrderBy("xp", firestore.Desc).Limit(n))
}

func (r *FirestoreProfileRepository) query(ctx context.Context, q firestore.Query) ([]model.Profile, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	profiles := make([]model.Profile, 0, len(docs))
	for _, doc := range docs {
		var profile model.Profile
		if err := doc.DataTo(&profile); err != nil {
			return nil, fmt.Errorf("decode profile %s: %w", doc.Ref.ID, err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}
