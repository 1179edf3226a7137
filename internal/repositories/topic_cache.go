package repositories

import (
	"context"
	"dsatracker/internal/logger"
	"dsatracker/internal/models"
	"dsatracker/internal/services"
	"errors"
	"time"

	"go.uber.org/zap"
)

const catalogCacheKey = "catalog:topics"

// CachedTopicRepository serves ListTopics from the cache and drops the cached
// catalog after every mutation. Cache failures fall through to the store.
type CachedTopicRepository struct {
	next  TopicRepository
	cache services.Cache
	ttl   time.Duration
}

func NewCachedTopicRepository(next TopicRepository, cache services.Cache, ttl time.Duration) *CachedTopicRepository {
	return &CachedTopicRepository{next: next, cache: cache, ttl: ttl}
}

func (r *CachedTopicRepository) ListTopics(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	err := r.cache.Get(ctx, catalogCacheKey, &topics)
	if err == nil {
		return topics, nil
	}
	if !errors.Is(err, services.ErrCacheMiss) {
		logger.Log.Warn("Failed to read catalog from cache", zap.Error(err))
	}

	topics, err = r.next.ListTopics(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, catalogCacheKey, topics, r.ttl); err != nil {
		logger.Log.Warn("Failed to write catalog to cache", zap.Error(err))
	}
	return topics, nil
}

func (r *CachedTopicRepository) GetTopic(ctx context.Context, topicID string) (*models.Topic, error) {
	return r.next.GetTopic(ctx, topicID)
}

func (r *CachedTopicRepository) CreateTopic(ctx context.Context, req *models.CreateTopicRequest) (*models.Topic, error) {
	topic, err := r.next.CreateTopic(ctx, req)
	r.invalidate(ctx)
	return topic, err
}

func (r *CachedTopicRepository) DeleteTopic(ctx context.Context, topicID string) error {
	err := r.next.DeleteTopic(ctx, topicID)
	r.invalidate(ctx)
	return err
}

func (r *CachedTopicRepository) AddProblem(ctx context.Context, topicID string, problem models.Problem) (*models.Topic, error) {
	topic, err := r.next.AddProblem(ctx, topicID, problem)
	r.invalidate(ctx)
	return topic, err
}

func (r *CachedTopicRepository) DeleteProblem(ctx context.Context, topicID, problemID string) (*models.Topic, error) {
	topic, err := r.next.DeleteProblem(ctx, topicID, problemID)
	r.invalidate(ctx)
	return topic, err
}

func (r *CachedTopicRepository) invalidate(ctx context.Context) {
	if err := r.cache.Delete(ctx, catalogCacheKey); err != nil {
		logger.Log.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
}
