package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"device-tracking-backend/internal/model"
)

// Store defines the interface for all document operations.
type Store interface {
	CreateConfiguration(ctx context.Context, cfg *model.Configuration) error
	GetConfiguration(ctx context.Context, id string) (*model.Configuration, error)
	ListConfigurations(ctx context.Context) ([]model.Configuration, error)
	UpdateConfiguration(ctx context.Context, id string, fields map[string]any) error

	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobs(ctx context.Context) ([]model.Job, error)
	MaxJobID(ctx context.Context) (int64, error)
	LatestJobByName(ctx context.Context, name string) (*model.Job, error)

	CreateUser(ctx context.Context, user *model.User) error
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// Option customises a gormStore.
type Option func(*gormStore)

// WithClock replaces the clock used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *gormStore) { s.now = now }
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, opts ...Option) Store {
	s := &gormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for migrations and tests.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// CreateConfiguration assigns an id and the server timestamp, then inserts.
func (s *gormStore) CreateConfiguration(ctx context.Context, cfg *model.Configuration) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	cfg.CreatedOn = s.now()
	if err := s.db.WithContext(ctx).Create(cfg).Error; err != nil {
		return fmt.Errorf("failed to create configuration %q: %w", cfg.Name, err)
	}
	return nil
}

func (s *gormStore) GetConfiguration(ctx context.Context, id string) (*model.Configuration, error) {
	var cfg model.Configuration
	if err := s.db.WithContext(ctx).First(&cfg, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, CollectionConfigurations, id)
	}
	return &cfg, nil
}

// ListConfigurations returns every configuration, newest first.
func (s *gormStore) ListConfigurations(ctx context.Context) ([]model.Configuration, error) {
	var cfgs []model.Configuration
	if err := s.db.WithContext(ctx).Order("created_on DESC").Find(&cfgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	return cfgs, nil
}

// UpdateConfiguration writes the given columns of one configuration. It is
// a partial update; columns not named in fields keep their stored values.
func (s *gormStore) UpdateConfiguration(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).Model(&model.Configuration{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update configuration %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", CollectionConfigurations, id, ErrNotFound)
	}
	return nil
}

// CreateJob assigns an id and the server timestamp, then inserts. The caller
// picks JobID; nothing here makes it unique.
func (s *gormStore) CreateJob(ctx context.Context, job *model.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedOn = s.now()
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job %q: %w", job.Name, err)
	}
	return nil
}

func (s *gormStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, CollectionJobs, id)
	}
	return &job, nil
}

// ListJobs returns every job ordered by jobId.
func (s *gormStore) ListJobs(ctx context.Context) ([]model.Job, error) {
	var jobs []model.Job
	if err := s.db.WithContext(ctx).Order("job_id ASC").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// MaxJobID returns the highest jobId, or 0 for an empty collection.
func (s *gormStore) MaxJobID(ctx context.Context) (int64, error) {
	var jobs []model.Job
	err := s.db.WithContext(ctx).
		Select("job_id").
		Order("job_id DESC").
		Limit(1).
		Find(&jobs).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read latest job id: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}
	return jobs[0].JobID, nil
}

// LatestJobByName returns the most recently created job with exactly name.
func (s *gormStore) LatestJobByName(ctx context.Context, name string) (*model.Job, error) {
	var jobs []model.Job
	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		Order("created_on DESC").
		Limit(1).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up job %q: %w", name, err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%s name=%q: %w", CollectionJobs, name, ErrNotFound)
	}
	return &jobs[0], nil
}

func (s *gormStore) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = s.now()
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.PhoneNumber, err)
	}
	return nil
}

func (s *gormStore) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "phone_number = ?", phone).Error; err != nil {
		return nil, wrapNotFound(err, CollectionUsers, phone)
	}
	return &user, nil
}

func (s *gormStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err, CollectionUsers, id)
	}
	return &user, nil
}

func wrapNotFound(err error, collection, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	return fmt.Errorf("failed to read %s/%s: %w", collection, key, err)
}
