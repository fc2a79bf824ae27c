package schedule

import (
	"context"
	"errors"

	"github.com/gestcare/gestcare/internal/platform/store"
)

const examsKind = "scheduled_exams"

// Repository persists one exam collection per user. A user with no stored
// collection gets an empty slice.
type Repository interface {
	List(ctx context.Context, userID string) ([]ScheduledExam, error)
	Save(ctx context.Context, userID string, exams []ScheduledExam) error
	Delete(ctx context.Context, userID string) error
}

type repoStore struct {
	s store.Store
}

// NewRepo returns a Repository backed by a key-value store.
func NewRepo(s store.Store) Repository {
	return &repoStore{s: s}
}

func (r *repoStore) List(ctx context.Context, userID string) ([]ScheduledExam, error) {
	var exams []ScheduledExam
	err := store.LoadJSON(ctx, r.s, store.Key(userID, examsKind), &exams)
	if errors.Is(err, store.ErrNotFound) {
		return []ScheduledExam{}, nil
	}
	if err != nil {
		return nil, err
	}
	return exams, nil
}

func (r *repoStore) Save(ctx context.Context, userID string, exams []ScheduledExam) error {
	return store.SaveJSON(ctx, r.s, store.Key(userID, examsKind), exams)
}

func (r *repoStore) Delete(ctx context.Context, userID string) error {
	return r.s.Remove(ctx, store.Key(userID, examsKind))
}
