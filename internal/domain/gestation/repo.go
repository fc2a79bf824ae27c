package gestation

import (
	"context"
	"errors"

	"github.com/gestcare/gestcare/internal/platform/store"
)

// ErrProfileNotFound is returned when a user has no stored profile.
var ErrProfileNotFound = errors.New("pregnancy profile not found")

const profileKind = "pregnancy_profile"

// ProfileRepository persists one pregnancy profile per user.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*PregnancyProfile, error)
	Save(ctx context.Context, p *PregnancyProfile) error
	Delete(ctx context.Context, userID string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

type profileRepoStore struct {
	s store.Store
}

// NewProfileRepo returns a ProfileRepository backed by a key-value store.
func NewProfileRepo(s store.Store) ProfileRepository {
	return &profileRepoStore{s: s}
}

func (r *profileRepoStore) Get(ctx context.Context, userID string) (*PregnancyProfile, error) {
	var p PregnancyProfile
	err := store.LoadJSON(ctx, r.s, store.Key(userID, profileKind), &p)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepoStore) Save(ctx context.Context, p *PregnancyProfile) error {
	return store.SaveJSON(ctx, r.s, store.Key(p.UserID, profileKind), p)
}

func (r *profileRepoStore) Delete(ctx context.Context, userID string) error {
	return r.s.Remove(ctx, store.Key(userID, profileKind))
}

func (r *profileRepoStore) ListUserIDs(ctx context.Context) ([]string, error) {
	keys, err := r.s.Keys(ctx, store.Namespace+":")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, k := range keys {
		if id, ok := store.UserFromKey(k, profileKind); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
