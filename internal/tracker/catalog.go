package tracker

import (
	"context"
	"dsatracker/internal/apperrors"
	"dsatracker/internal/logger"
	"dsatracker/internal/models"
	"dsatracker/internal/repositories"

	"go.uber.org/zap"
)

// CatalogService manages topics and their problems. Every mutation requires
// an admin identity.
type CatalogService struct {
	topics repositories.TopicRepository
}

func NewCatalogService(topics repositories.TopicRepository) *CatalogService {
	return &CatalogService{topics: topics}
}

func (s *CatalogService) ListTopics(ctx context.Context) ([]models.Topic, error) {
	return s.topics.ListTopics(ctx)
}

func (s *CatalogService) CreateTopic(ctx context.Context, id models.Identity, req *models.CreateTopicRequest) (*models.Topic, error) {
	if !id.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	topic, err := s.topics.CreateTopic(ctx, req)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Topic created",
		zap.String("topic_id", topic.ID),
		zap.String("title", topic.Title),
		zap.String("admin_id", id.UserID))
	return topic, nil
}

func (s *CatalogService) DeleteTopic(ctx context.Context, id models.Identity, topicID string) error {
	if !id.IsAdmin() {
		return apperrors.ErrForbidden
	}

	if err := s.topics.DeleteTopic(ctx, topicID); err != nil {
		return err
	}

	logger.Log.Info("Topic deleted", zap.String("topic_id", topicID), zap.String("admin_id", id.UserID))
	return nil
}

func (s *CatalogService) AddProblem(ctx context.Context, id models.Identity, topicID string, req *models.AddProblemRequest) (*models.Topic, error) {
	if !id.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	topic, err := s.topics.AddProblem(ctx, topicID, req.ToProblem())
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Problem added",
		zap.String("topic_id", topicID),
		zap.String("title", req.Title),
		zap.String("difficulty", string(req.Difficulty)),
		zap.String("admin_id", id.UserID))
	return topic, nil
}

func (s *CatalogService) DeleteProblem(ctx context.Context, id models.Identity, topicID, problemID string) (*models.Topic, error) {
	if !id.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	topic, err := s.topics.DeleteProblem(ctx, topicID, problemID)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Problem deleted",
		zap.String("topic_id", topicID),
		zap.String("problem_id", problemID),
		zap.String("admin_id", id.UserID))
	return topic, nil
}
