package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"study-planner/internal/model"
)

const profilePrefix = "profile:"

// LocalProfileRepository stores each profile in its own "profile:<uid>" blob.
type LocalProfileRepository struct {
	store *BlobStore
}

func NewLocalProfileRepository(store *BlobStore) *LocalProfileRepository {
	return &LocalProfileRepository{store: store}
}

func (r *LocalProfileRepository) Get(ctx context.Context, uid string) (model.Profile, bool, error) {
	var profile model.Profile
	ok, err := r.store.Load(ctx, profilePrefix+uid, &profile)
	if err != nil {
		return model.Profile{}, false, fmt.Errorf("get profile: %w", err)
	}
	return profile, ok, nil
}

func (r *LocalProfileRepository) Put(ctx context.Context, profile model.Profile) error {
	if err := r.store.Save(ctx, profilePrefix+profile.UID, profile); err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (r *LocalProfileRepository) Delete(ctx context.Context, uid string) error {
	if err := r.store.Delete(ctx, profilePrefix+uid); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// List returns all profiles in creation order.
func (r *LocalProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.store.Each(ctx, profilePrefix, func(key string, raw []byte) error {
		var profile model.Profile
		if err := json.Unmarshal(raw, &profile); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		profiles = append(profiles, profile)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// Top returns the n profiles with the most xp; ties keep creation order.
func (r *LocalProfileRepository) Top(ctx context.Context, n int) ([]model.Profile, error) {
	if n <= 0 {
		return nil, nil
	}
	profiles, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].XP > profiles[j].XP
	})
	if n < len(profiles) {
		profiles = profiles[:n]
	}
	return profiles, nil
}
