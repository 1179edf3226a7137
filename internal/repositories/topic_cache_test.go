package repositories

import (
	"context"
	"dsatracker/internal/models"
	"dsatracker/internal/services"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTopics struct {
	TopicRepository
	lists int
}

func (c *countingTopics) ListTopics(ctx context.Context) ([]models.Topic, error) {
	c.lists++
	return c.TopicRepository.ListTopics(ctx)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, interface{}) error { return errors.New("connection refused") }
func (brokenCache) Set(context.Context, string, interface{}, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenCache) Delete(context.Context, ...string) error { return errors.New("connection refused") }

func TestCachedTopicRepository_ServesFromCache(t *testing.T) {
	store := NewMemoryStore()
	counting := &countingTopics{TopicRepository: store}
	repo := NewCachedTopicRepository(counting, services.NewMemoryCache(), time.Minute)
	ctx := context.Background()

	seedTopic(t, store, "Arrays", "Two Sum")

	first, err := repo.ListTopics(ctx)
	require.NoError(t, err)
	second, err := repo.ListTopics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, counting.lists)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "Two Sum", second[0].Problems[0].Title)
}

func TestCachedTopicRepository_MutationsInvalidate(t *testing.T) {
	store := NewMemoryStore()
	counting := &countingTopics{TopicRepository: store}
	repo := NewCachedTopicRepository(counting, services.NewMemoryCache(), time.Minute)
	ctx := context.Background()

	_, err := repo.ListTopics(ctx)
	require.NoError(t, err)

	topic, err := repo.CreateTopic(ctx, &models.CreateTopicRequest{Title: "Arrays"})
	require.NoError(t, err)
	topics, err := repo.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 1)

	topic, err = repo.AddProblem(ctx, topic.ID, models.Problem{Title: "Two Sum", Difficulty: models.DifficultyEasy})
	require.NoError(t, err)
	topics, err = repo.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topics[0].Problems, 1)

	_, err = repo.DeleteProblem(ctx, topic.ID, topic.Problems[0].ID)
	require.NoError(t, err)
	topics, err = repo.ListTopics(ctx)
	require.NoError(t, err)
	assert.Empty(t, topics[0].Problems)

	require.NoError(t, repo.DeleteTopic(ctx, topic.ID))
	topics, err = repo.ListTopics(ctx)
	require.NoError(t, err)
	assert.Empty(t, topics)

	assert.Equal(t, 5, counting.lists)
}

func TestCachedTopicRepository_FallsThroughOnCacheFailure(t *testing.T) {
	store := NewMemoryStore()
	repo := NewCachedTopicRepository(store, brokenCache{}, time.Minute)
	seedTopic(t, store, "Arrays")

	topics, err := repo.ListTopics(context.Background())
	require.NoError(t, err)
	assert.Len(t, topics, 1)
}
