package repositories

import (
	"context"
	"database/sql"
	"dsatracker/internal/apperrors"
	"dsatracker/internal/models"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TopicRepository is the catalog store. Problems are embedded in their topic
// and are only reachable through it.
type TopicRepository interface {
	ListTopics(ctx context.Context) ([]models.Topic, error)
	GetTopic(ctx context.Context, topicID string) (*models.Topic, error)
	CreateTopic(ctx context.Context, req *models.CreateTopicRequest) (*models.Topic, error)
	DeleteTopic(ctx context.Context, topicID string) error
	AddProblem(ctx context.Context, topicID string, problem models.Problem) (*models.Topic, error)
	DeleteProblem(ctx context.Context, topicID, problemID string) (*models.Topic, error)
}

type topicRepository struct {
	db *sqlx.DB
}

func NewTopicRepository(db *sqlx.DB) TopicRepository {
	return &topicRepository{db: db}
}

const (
	selectTopics   = `SELECT id, title, description, created_at, updated_at FROM topics`
	selectProblems = `SELECT id, topic_id, title, difficulty, leetcode_link, youtube_link, article_link FROM problems`
)

func (r *topicRepository) ListTopics(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	if err := r.db.SelectContext(ctx, &topics, selectTopics+` ORDER BY seq`); err != nil {
		return nil, apperrors.Store("list topics", err)
	}

	var problems []models.Problem
	if err := r.db.SelectContext(ctx, &problems, selectProblems+` ORDER BY seq`); err != nil {
		return nil, apperrors.Store("list problems", err)
	}

	return attachProblems(topics, problems), nil
}

func (r *topicRepository) GetTopic(ctx context.Context, topicID string) (*models.Topic, error) {
	return getTopic(ctx, r.db, topicID)
}

func (r *topicRepository) CreateTopic(ctx context.Context, req *models.CreateTopicRequest) (*models.Topic, error) {
	now := storeNow()
	topic := &models.Topic{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Problems:    []models.Problem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `INSERT INTO topics (id, title, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, topic.ID, topic.Title, topic.Description, now, now); err != nil {
		return nil, apperrors.Store("create topic", err)
	}

	return topic, nil
}

// DeleteTopic removes the topic, its problems and every progress record that
// points at either of them, in one transaction. Locks are taken topic, then
// problems, then progress, the same order toggles and problem deletes use.
func (r *topicRepository) DeleteTopic(ctx context.Context, topicID string) error {
	return withTx(ctx, r.db, "delete topic", func(tx *sqlx.Tx) error {
		if err := lockTopic(ctx, tx, topicID); err != nil {
			return err
		}

		var problemIDs []string
		if err := tx.SelectContext(ctx, &problemIDs, `SELECT id FROM problems WHERE topic_id = ? FOR UPDATE`, topicID); err != nil {
			return apperrors.Store("lock topic problems", err)
		}

		_, err := tx.ExecContext(ctx,
			`DELETE FROM user_progress
			 WHERE topic_id = ? OR problem_id IN (SELECT id FROM problems WHERE topic_id = ?)`,
			topicID, topicID)
		if err != nil {
			return apperrors.Store("delete topic progress", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM problems WHERE topic_id = ?`, topicID); err != nil {
			return apperrors.Store("delete topic problems", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM topics WHERE id = ?`, topicID); err != nil {
			return apperrors.Store("delete topic", err)
		}
		return nil
	})
}

func (r *topicRepository) AddProblem(ctx context.Context, topicID string, problem models.Problem) (*models.Topic, error) {
	problem.ID = uuid.NewString()
	problem.TopicID = topicID

	err := withTx(ctx, r.db, "add problem", func(tx *sqlx.Tx) error {
		if err := lockTopic(ctx, tx, topicID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO problems (id, topic_id, title, difficulty, leetcode_link, youtube_link, article_link)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			problem.ID, problem.TopicID, problem.Title, problem.Difficulty,
			problem.LeetcodeLink, problem.YoutubeLink, problem.ArticleLink)
		if err != nil {
			return apperrors.Store("insert problem", err)
		}

		return touchTopic(ctx, tx, topicID)
	})
	if err != nil {
		return nil, err
	}

	return getTopic(ctx, r.db, topicID)
}

// DeleteProblem removes one problem from its topic and purges its progress
// records, so no progress ever outlives the problem it refers to.
func (r *topicRepository) DeleteProblem(ctx context.Context, topicID, problemID string) (*models.Topic, error) {
	err := withTx(ctx, r.db, "delete problem", func(tx *sqlx.Tx) error {
		if err := lockTopic(ctx, tx, topicID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM problems WHERE id = ? AND topic_id = ?`, problemID, topicID)
		if err != nil {
			return apperrors.Store("delete problem", err)
		}
		if affected, err := result.RowsAffected(); err != nil {
			return apperrors.Store("delete problem", err)
		} else if affected == 0 {
			return apperrors.NotFound("problem not found")
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM user_progress WHERE problem_id = ?`, problemID); err != nil {
			return apperrors.Store("delete problem progress", err)
		}

		return touchTopic(ctx, tx, topicID)
	})
	if err != nil {
		return nil, err
	}

	return getTopic(ctx, r.db, topicID)
}

func getTopic(ctx context.Context, q sqlx.QueryerContext, topicID string) (*models.Topic, error) {
	var topic models.Topic
	if err := sqlx.GetContext(ctx, q, &topic, selectTopics+` WHERE id = ?`, topicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("topic not found")
		}
		return nil, apperrors.Store("get topic", err)
	}

	var problems []models.Problem
	if err := sqlx.SelectContext(ctx, q, &problems, selectProblems+` WHERE topic_id = ? ORDER BY seq`, topicID); err != nil {
		return nil, apperrors.Store("get topic problems", err)
	}

	topic.Problems = problems
	if topic.Problems == nil {
		topic.Problems = []models.Problem{}
	}
	return &topic, nil
}

func lockTopic(ctx context.Context, tx *sqlx.Tx, topicID string) error {
	var id string
	if err := tx.GetContext(ctx, &id, `SELECT id FROM topics WHERE id = ? FOR UPDATE`, topicID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("topic not found")
		}
		return apperrors.Store("lock topic", err)
	}
	return nil
}

func touchTopic(ctx context.Context, tx *sqlx.Tx, topicID string) error {
	if _, err := tx.ExecContext(ctx, `UPDATE topics SET updated_at = ? WHERE id = ?`, storeNow(), topicID); err != nil {
		return apperrors.Store("touch topic", err)
	}
	return nil
}

// attachProblems distributes problems, already in display order, to topics.
func attachProblems(topics []models.Topic, problems []models.Problem) []models.Topic {
	index := make(map[string]int, len(topics))
	for i := range topics {
		topics[i].Problems = []models.Problem{}
		index[topics[i].ID] = i
	}

	for _, p := range problems {
		if i, ok := index[p.TopicID]; ok {
			topics[i].Problems = append(topics[i].Problems, p)
		}
	}

	if topics == nil {
		return []models.Topic{}
	}
	return topics
}

func withTx(ctx context.Context, db *sqlx.DB, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Store(op+": begin", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Store(fmt.Sprintf("%s: commit", op), err)
	}
	return nil
}

// storeNow matches the DATETIME(6) precision of the schema.
func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
