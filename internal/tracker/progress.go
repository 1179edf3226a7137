package tracker

import (
	"context"
	"dsatracker/internal/apperrors"
	"dsatracker/internal/logger"
	"dsatracker/internal/models"
	"dsatracker/internal/repositories"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("dsatracker/tracker")

// ProgressService builds role-specific dashboards and records completion
// toggles.
type ProgressService struct {
	topics   repositories.TopicRepository
	progress repositories.ProgressRepository
	users    repositories.UserRepository
	now      func() time.Time
}

func NewProgressService(topics repositories.TopicRepository, progress repositories.ProgressRepository, users repositories.UserRepository) *ProgressService {
	return &ProgressService{
		topics:   topics,
		progress: progress,
		users:    users,
		now:      time.Now,
	}
}

type progressIndexKey struct {
	topicID   string
	problemID string
}

// BuildDashboard returns an AdminDashboard for admins and a StudentDashboard
// for everyone else.
func (s *ProgressService) BuildDashboard(ctx context.Context, id models.Identity) (interface{}, error) {
	if id.UserID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	if id.IsAdmin() {
		return s.AdminDashboard(ctx)
	}
	return s.StudentDashboard(ctx, id.UserID)
}

// AdminDashboard lists the whole catalog with counts. It never reads progress.
func (s *ProgressService) AdminDashboard(ctx context.Context) (dashboard *models.AdminDashboard, err error) {
	ctx, span := tracer.Start(ctx, "ProgressService.AdminDashboard")
	defer func() { endSpan(span, err) }()

	topics, err := s.topics.ListTopics(ctx)
	if err != nil {
		return nil, err
	}

	dashboard = &models.AdminDashboard{
		Success:     true,
		IsAdmin:     true,
		Topics:      make([]models.AdminTopicView, 0, len(topics)),
		TotalTopics: len(topics),
	}
	for _, topic := range topics {
		view := models.AdminTopicView{
			ID:            topic.ID,
			Title:         topic.Title,
			Description:   topic.Description,
			TotalProblems: len(topic.Problems),
			Problems:      make([]models.ProblemView, 0, len(topic.Problems)),
		}
		for _, p := range topic.Problems {
			view.Problems = append(view.Problems, models.NewProblemView(p))
		}
		dashboard.Topics = append(dashboard.Topics, view)
		dashboard.TotalProblems += view.TotalProblems
	}

	span.SetAttributes(
		attribute.Int("dashboard.topics", dashboard.TotalTopics),
		attribute.Int("dashboard.problems", dashboard.TotalProblems))
	return dashboard, nil
}

// StudentDashboard annotates the catalog with the user's progress. Problems
// without a record are reported as not completed.
func (s *ProgressService) StudentDashboard(ctx context.Context, userID string) (dashboard *models.StudentDashboard, err error) {
	ctx, span := tracer.Start(ctx, "ProgressService.StudentDashboard",
		trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { endSpan(span, err) }()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s no longer exists", apperrors.ErrUnauthenticated, userID)
		}
		return nil, err
	}

	topics, err := s.topics.ListTopics(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.progress.ListProgressByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	index := make(map[progressIndexKey]models.Progress, len(records))
	for _, r := range records {
		index[progressIndexKey{topicID: r.TopicID, problemID: r.ProblemID}] = r
	}

	dashboard = &models.StudentDashboard{
		Success: true,
		User:    user.Profile(),
		Topics:  make([]models.StudentTopicView, 0, len(topics)),
	}
	for _, topic := range topics {
		view := models.StudentTopicView{
			ID:            topic.ID,
			Title:         topic.Title,
			Description:   topic.Description,
			TotalProblems: len(topic.Problems),
			Problems:      make([]models.StudentProblemView, 0, len(topic.Problems)),
		}
		for _, p := range topic.Problems {
			pv := models.StudentProblemView{ProblemView: models.NewProblemView(p)}
			if r, ok := index[progressIndexKey{topicID: topic.ID, problemID: p.ID}]; ok && r.Completed {
				pv.Completed = true
				pv.CompletedAt = r.CompletedAt
				view.CompletedCount++
			}
			view.Problems = append(view.Problems, pv)
		}
		dashboard.Topics = append(dashboard.Topics, view)
		dashboard.TotalCompleted += view.CompletedCount
	}

	span.SetAttributes(attribute.Int("dashboard.completed", dashboard.TotalCompleted))
	return dashboard, nil
}

// ToggleCompletion flips one problem for the caller and returns the stored
// record. Aggregates are left to the next dashboard read.
func (s *ProgressService) ToggleCompletion(ctx context.Context, id models.Identity, req models.ToggleRequest) (progress *models.Progress, err error) {
	ctx, span := tracer.Start(ctx, "ProgressService.ToggleCompletion",
		trace.WithAttributes(
			attribute.String("user.id", id.UserID),
			attribute.String("problem.id", req.ProblemID)))
	defer func() { endSpan(span, err) }()

	if id.UserID == "" {
		return nil, apperrors.ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	progress, err = s.progress.ToggleProgress(ctx, id.UserID, req.TopicID, req.ProblemID, now)
	if err != nil {
		return nil, err
	}

	logger.Log.Debug("Progress toggled",
		zap.String("user_id", id.UserID),
		zap.String("problem_id", req.ProblemID),
		zap.Bool("completed", progress.Completed))
	return progress, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
