package models

import "time"

type UserProfile struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

type ProblemView struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Difficulty   Difficulty `json:"difficulty"`
	LeetcodeLink string     `json:"leetcodeLink,omitempty"`
	YoutubeLink  string     `json:"youtubeLink,omitempty"`
	ArticleLink  string     `json:"articleLink,omitempty"`
}

func NewProblemView(p Problem) ProblemView {
	return ProblemView{
		ID:           p.ID,
		Title:        p.Title,
		Difficulty:   p.Difficulty,
		LeetcodeLink: p.LeetcodeLink,
		YoutubeLink:  p.YoutubeLink,
		ArticleLink:  p.ArticleLink,
	}
}

// Admin view: the catalog without any completion data.

type AdminTopicView struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	TotalProblems int           `json:"totalProblems"`
	Problems      []ProblemView `json:"problems"`
}

type AdminDashboard struct {
	Success       bool             `json:"success"`
	IsAdmin       bool             `json:"isAdmin"`
	Topics        []AdminTopicView `json:"topics"`
	TotalTopics   int              `json:"totalTopics"`
	TotalProblems int              `json:"totalProblems"`
}

// Student view: the catalog annotated with the caller's progress.

type StudentProblemView struct {
	ProblemView
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

type StudentTopicView struct {
	ID             string               `json:"id"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	TotalProblems  int                  `json:"totalProblems"`
	CompletedCount int                  `json:"completedCount"`
	Problems       []StudentProblemView `json:"problems"`
}

type StudentDashboard struct {
	Success        bool               `json:"success"`
	IsAdmin        bool               `json:"isAdmin"`
	User           UserProfile        `json:"user"`
	Topics         []StudentTopicView `json:"topics"`
	TotalCompleted int                `json:"totalCompleted"`
}
