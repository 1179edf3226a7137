package models

import (
	"dsatracker/internal/apperrors"
	"strings"
	"time"
)

// Progress is the completion record of one user for one problem. The
// (UserID, ProblemID) pair is unique.
type Progress struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"userId"`
	TopicID     string     `db:"topic_id" json:"topicId"`
	ProblemID   string     `db:"problem_id" json:"problemId"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt"`
}

// Toggle flips the completion state and keeps CompletedAt in step with it.
func (p *Progress) Toggle(now time.Time) {
	p.Completed = !p.Completed
	if p.Completed {
		p.CompletedAt = &now
		return
	}
	p.CompletedAt = nil
}

type ToggleRequest struct {
	TopicID   string `json:"topicId"`
	ProblemID string `json:"problemId"`
}

func (r *ToggleRequest) Validate() error {
	r.TopicID = strings.TrimSpace(r.TopicID)
	r.ProblemID = strings.TrimSpace(r.ProblemID)

	if r.TopicID == "" {
		return apperrors.Validation("topicId is required")
	}
	if r.ProblemID == "" {
		return apperrors.Validation("problemId is required")
	}
	return nil
}
