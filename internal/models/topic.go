package models

import (
	"dsatracker/internal/apperrors"
	"net/url"
	"strings"
	"time"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Topic owns its problems; their order is the display order.
type Topic struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Problems    []Problem `db:"-" json:"problems"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// FindProblem returns the index of the problem inside the topic, or -1.
func (t *Topic) FindProblem(problemID string) int {
	for i := range t.Problems {
		if t.Problems[i].ID == problemID {
			return i
		}
	}
	return -1
}

type Problem struct {
	ID           string     `db:"id" json:"id"`
	TopicID      string     `db:"topic_id" json:"-"`
	Title        string     `db:"title" json:"title"`
	Difficulty   Difficulty `db:"difficulty" json:"difficulty"`
	LeetcodeLink string     `db:"leetcode_link" json:"leetcodeLink,omitempty"`
	YoutubeLink  string     `db:"youtube_link" json:"youtubeLink,omitempty"`
	ArticleLink  string     `db:"article_link" json:"articleLink,omitempty"`
}

type CreateTopicRequest struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

func (r *CreateTopicRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)

	if r.Title == "" {
		return apperrors.Validation("title is required")
	}
	if len(r.Title) > 200 {
		return apperrors.Validation("title must be at most 200 characters")
	}
	return nil
}

type AddProblemRequest struct {
	Title        string     `json:"title" yaml:"title"`
	Difficulty   Difficulty `json:"difficulty" yaml:"difficulty"`
	LeetcodeLink string     `json:"leetcodeLink" yaml:"leetcodeLink"`
	YoutubeLink  string     `json:"youtubeLink" yaml:"youtubeLink"`
	ArticleLink  string     `json:"articleLink" yaml:"articleLink"`
}

func (r *AddProblemRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return apperrors.Validation("title is required")
	}
	if r.Difficulty == "" {
		return apperrors.Validation("difficulty is required")
	}
	if !r.Difficulty.Valid() {
		return apperrors.Validation("difficulty must be one of Easy, Medium, Hard")
	}

	links := []struct {
		name string
		ref  *string
	}{
		{"leetcodeLink", &r.LeetcodeLink},
		{"youtubeLink", &r.YoutubeLink},
		{"articleLink", &r.ArticleLink},
	}
	for _, link := range links {
		*link.ref = strings.TrimSpace(*link.ref)
		if *link.ref == "" {
			continue
		}
		u, err := url.Parse(*link.ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperrors.Validation("%s must be an http(s) URL", link.name)
		}
	}
	return nil
}

func (r *AddProblemRequest) ToProblem() Problem {
	return Problem{
		Title:        r.Title,
		Difficulty:   r.Difficulty,
		LeetcodeLink: r.LeetcodeLink,
		YoutubeLink:  r.YoutubeLink,
		ArticleLink:  r.ArticleLink,
	}
}
