package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"TradeForge/internal/domain/models"
	domrepo "TradeForge/internal/domain/repository"
	applogger "TradeForge/pkg/logger"
)

const (
	jobKeyPrefix = "tradeforge:jobs:"
	jobIndexKey  = "tradeforge:jobs:index"
)

// RedisJobStore persists training-job rows as JSON values keyed by job
// id, with a set index for sweeps.
type RedisJobStore struct {
	client *redis.Client
	l      *applogger.Logger
}

var _ domrepo.JobStore = (*RedisJobStore)(nil)

func NewRedisJobStore(client *redis.Client, l *applogger.Logger) *RedisJobStore {
	return &RedisJobStore{client: client, l: l}
}

// Put upserts a job row.
func (s *RedisJobStore) Put(ctx context.Context, job *models.TrainingJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobKeyPrefix+job.ID, data, 0)
	pipe.SAdd(ctx, jobIndexKey, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		s.l.Error("redis job put error",
			applogger.String("id", job.ID),
			applogger.String("symbol", job.Symbol),
			applogger.Error(err),
		)
		return fmt.Errorf("store job: %w", err)
	}
	return nil
}

// Get fetches one job row by id.
func (s *RedisJobStore) Get(ctx context.Context, id string) (*models.TrainingJob, error) {
	data, err := s.client.Get(ctx, jobKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("job %s not found", id)
		}
		return nil, fmt.Errorf("fetch job: %w", err)
	}

	var job models.TrainingJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// ListRetryable returns failed jobs still inside the attempt bound.
// Permanently failed jobs (attempts exhausted) are excluded from sweeps.
func (s *RedisJobStore) ListRetryable(ctx context.Context, maxAttempts int) ([]*models.TrainingJob, error) {
	ids, err := s.client.SMembers(ctx, jobIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list job ids: %w", err)
	}

	var jobs []*models.TrainingJob
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if err != nil {
			s.l.Warn("skipping unreadable job", applogger.String("id", id), applogger.Error(err))
			continue
		}
		if job.Status == models.JobFailed && job.Retryable(maxAttempts) {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}
