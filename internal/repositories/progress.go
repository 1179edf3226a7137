package repositories

import (
	"context"
	"database/sql"
	"dsatracker/internal/apperrors"
	"dsatracker/internal/models"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ProgressRepository stores per-user completion records. Concurrent first
// toggles of one (user, problem) pair must end with a single completed record.
type ProgressRepository interface {
	ListProgressByUser(ctx context.Context, userID string) ([]models.Progress, error)
	ToggleProgress(ctx context.Context, userID, topicID, problemID string, now time.Time) (*models.Progress, error)
}

type progressRepository struct {
	db *sqlx.DB
}

func NewProgressRepository(db *sqlx.DB) ProgressRepository {
	return &progressRepository{db: db}
}

const selectProgress = `SELECT id, user_id, topic_id, problem_id, completed, completed_at FROM user_progress`

func (r *progressRepository) ListProgressByUser(ctx context.Context, userID string) ([]models.Progress, error) {
	var records []models.Progress
	if err := r.db.SelectContext(ctx, &records, selectProgress+` WHERE user_id = ?`, userID); err != nil {
		return nil, apperrors.Store("list progress", err)
	}
	return records, nil
}

// ToggleProgress checks that the problem belongs to the topic, then flips an
// existing record or creates a completed one. The unique (user_id, problem_id)
// key settles concurrent first toggles: the losing insert returns the record
// the winner created instead of flipping it.
func (r *progressRepository) ToggleProgress(ctx context.Context, userID, topicID, problemID string, now time.Time) (*models.Progress, error) {
	var progress models.Progress

	err := withTx(ctx, r.db, "toggle progress", func(tx *sqlx.Tx) error {
		var owned int
		err := tx.GetContext(ctx, &owned,
			`SELECT COUNT(*) FROM problems WHERE id = ? AND topic_id = ? LOCK IN SHARE MODE`,
			problemID, topicID)
		if err != nil {
			return apperrors.Store("check problem", err)
		}
		if owned == 0 {
			return apperrors.NotFound("problem not found in topic")
		}

		var existingID string
		err = tx.GetContext(ctx, &existingID,
			`SELECT id FROM user_progress WHERE user_id = ? AND problem_id = ?`, userID, problemID)
		switch {
		case err == nil:
			// MySQL applies the assignments left to right, so completed_at
			// sees the flipped value.
			_, err = tx.ExecContext(ctx,
				`UPDATE user_progress
				 SET completed = NOT completed, completed_at = IF(completed, ?, NULL)
				 WHERE id = ?`,
				now, existingID)
			if err != nil {
				return apperrors.Store("flip progress", err)
			}
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx,
				`INSERT INTO user_progress (id, user_id, topic_id, problem_id, completed, completed_at)
				 VALUES (?, ?, ?, ?, TRUE, ?)`,
				uuid.NewString(), userID, topicID, problemID, now)
			if err != nil && !apperrors.IsDuplicateEntry(err) {
				return apperrors.Store("insert progress", err)
			}
		default:
			return apperrors.Store("find progress", err)
		}

		// Locking read so a record committed by a concurrent insert is visible.
		err = tx.GetContext(ctx, &progress,
			selectProgress+` WHERE user_id = ? AND problem_id = ? LOCK IN SHARE MODE`, userID, problemID)
		if err != nil {
			return apperrors.Store("read progress", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &progress, nil
}
