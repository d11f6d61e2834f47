package service

import (
	"context"
	"errors"

	"inkwell/internal/media"
	"inkwell/internal/models"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn  func(context.Context, *models.Post) error
	getByIDFn func(context.Context, string) (*models.Post, error)
	listFn    func(context.Context, int, int) ([]*models.Post, error)
	countFn   func(context.Context) (int64, error)

	listByUserFn  func(context.Context, uint, int, int) ([]*models.Post, error)
	countByUserFn func(context.Context, uint) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return s.countByUserFn(ctx, userID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Post, error) { return nil, models.NewNotFoundError("Post", id) },
		listFn:    func(_ context.Context, _, _ int) ([]*models.Post, error) { return []*models.Post{}, nil },
		countFn:   func(_ context.Context) (int64, error) { return 0, nil },

		listByUserFn:  func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) { return []*models.Post{}, nil },
		countByUserFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn      func(context.Context, uint) (*models.User, error)
	getByEmailFn   func(context.Context, string) (*models.User, error)
	createFn       func(context.Context, *models.User) error
	updateFieldsFn func(context.Context, uint, map[string]any) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	return s.updateFieldsFn(ctx, id, fields)
}

// knownAuthorRepo resolves exactly one user.
func knownAuthorRepo(u *models.User) *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			if id == u.ID {
				return u, nil
			}
			return nil, models.NewNotFoundError("User", id)
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			if email == u.Email {
				return u, nil
			}
			return nil, nil
		},
		createFn:       func(_ context.Context, _ *models.User) error { return errors.New("unexpected create") },
		updateFieldsFn: func(_ context.Context, _ uint, _ map[string]any) error { return nil },
	}
}

// memoryStore is an in-memory media.Store.
type memoryStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memoryStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return "/uploads/" + key, nil
}

func (m *memoryStore) Backend() string { return media.BackendLocal }
