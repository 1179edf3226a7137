package repositories

import (
	"context"
	"dsatracker/internal/apperrors"
	"dsatracker/internal/models"
	"dsatracker/internal/utils"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type progressKey struct {
	userID    string
	problemID string
}

// MemoryStore keeps topics, progress and users in process memory. It
// implements TopicRepository, ProgressRepository and UserRepository with the
// same semantics as the MySQL repositories.
type MemoryStore struct {
	mu       sync.RWMutex
	topics   []*models.Topic
	progress map[progressKey]*models.Progress
	users    []*models.User

	// toggleHook runs between the lookup and the write of ToggleProgress.
	toggleHook func()
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{progress: make(map[progressKey]*models.Progress)}
}

var (
	_ TopicRepository    = (*MemoryStore)(nil)
	_ ProgressRepository = (*MemoryStore)(nil)
	_ UserRepository     = (*MemoryStore)(nil)
)

func (s *MemoryStore) ListTopics(ctx context.Context) ([]models.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics := make([]models.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		topics = append(topics, copyTopic(t))
	}
	return topics, nil
}

func (s *MemoryStore) GetTopic(ctx context.Context, topicID string) (*models.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.findTopic(topicID)
	if i < 0 {
		return nil, apperrors.NotFound("topic not found")
	}
	topic := copyTopic(s.topics[i])
	return &topic, nil
}

func (s *MemoryStore) CreateTopic(ctx context.Context, req *models.CreateTopicRequest) (*models.Topic, error) {
	now := storeNow()
	topic := &models.Topic{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Problems:    []models.Problem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.topics = append(s.topics, topic)
	s.mu.Unlock()

	created := copyTopic(topic)
	return &created, nil
}

func (s *MemoryStore) DeleteTopic(ctx context.Context, topicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findTopic(topicID)
	if i < 0 {
		return apperrors.NotFound("topic not found")
	}

	owned := make(map[string]bool, len(s.topics[i].Problems))
	for _, p := range s.topics[i].Problems {
		owned[p.ID] = true
	}
	for key, record := range s.progress {
		if record.TopicID == topicID || owned[key.problemID] {
			delete(s.progress, key)
		}
	}

	s.topics = append(s.topics[:i], s.topics[i+1:]...)
	return nil
}

func (s *MemoryStore) AddProblem(ctx context.Context, topicID string, problem models.Problem) (*models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findTopic(topicID)
	if i < 0 {
		return nil, apperrors.NotFound("topic not found")
	}

	problem.ID = uuid.NewString()
	problem.TopicID = topicID

	topic := s.topics[i]
	topic.Problems = append(topic.Problems, problem)
	topic.UpdatedAt = storeNow()

	updated := copyTopic(topic)
	return &updated, nil
}

func (s *MemoryStore) DeleteProblem(ctx context.Context, topicID, problemID string) (*models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findTopic(topicID)
	if i < 0 {
		return nil, apperrors.NotFound("topic not found")
	}

	topic := s.topics[i]
	j := topic.FindProblem(problemID)
	if j < 0 {
		return nil, apperrors.NotFound("problem not found")
	}

	topic.Problems = append(topic.Problems[:j], topic.Problems[j+1:]...)
	topic.UpdatedAt = storeNow()

	for key := range s.progress {
		if key.problemID == problemID {
			delete(s.progress, key)
		}
	}

	updated := copyTopic(topic)
	return &updated, nil
}

func (s *MemoryStore) ListProgressByUser(ctx context.Context, userID string) ([]models.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []models.Progress
	for key, record := range s.progress {
		if key.userID == userID {
			records = append(records, copyProgress(record))
		}
	}
	return records, nil
}

// ToggleProgress looks the record up and writes in two steps, like the SQL
// store. A toggle that saw no record but finds one at write time lost a
// concurrent first toggle and returns that record unchanged.
func (s *MemoryStore) ToggleProgress(ctx context.Context, userID, topicID, problemID string, now time.Time) (*models.Progress, error) {
	key := progressKey{userID: userID, problemID: problemID}

	s.mu.RLock()
	_, existed := s.progress[key]
	s.mu.RUnlock()

	if s.toggleHook != nil {
		s.toggleHook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findTopic(topicID)
	if i < 0 || s.topics[i].FindProblem(problemID) < 0 {
		return nil, apperrors.NotFound("problem not found in topic")
	}

	record, ok := s.progress[key]
	switch {
	case !ok:
		record = &models.Progress{
			ID:        uuid.NewString(),
			UserID:    userID,
			TopicID:   topicID,
			ProblemID: problemID,
		}
		record.Toggle(now)
		s.progress[key] = record
	case existed:
		record.Toggle(now)
	}

	result := copyProgress(record)
	return &result, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, req *models.RegisterRequest, role models.Role) (*models.User, error) {
	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, req.Username) || strings.EqualFold(u.Email, req.Email) {
			return nil, apperrors.Conflict("username or email already exists")
		}
	}

	user := &models.User{
		ID:           uuid.NewString(),
		FullName:     req.FullName,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         role,
		CreatedAt:    storeNow(),
	}
	s.users = append(s.users, user)

	created := *user
	return &created, nil
}

func (s *MemoryStore) GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == identifier || u.Email == identifier {
			found := *u
			return &found, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (s *MemoryStore) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == userID {
			found := *u
			return &found, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

// DeleteUser exists for tests that simulate a token outliving its account.
func (s *MemoryStore) DeleteUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, u := range s.users {
		if u.ID == userID {
			s.users = append(s.users[:i], s.users[i+1:]...)
			return
		}
	}
}

// SetUserRole exists for tests that change an account after its token was issued.
func (s *MemoryStore) SetUserRole(userID string, role models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == userID {
			u.Role = role
			return
		}
	}
}

// ProgressCount returns how many progress records exist for the user.
func (s *MemoryStore) ProgressCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for key := range s.progress {
		if key.userID == userID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) findTopic(topicID string) int {
	for i, t := range s.topics {
		if t.ID == topicID {
			return i
		}
	}
	return -1
}

func copyTopic(t *models.Topic) models.Topic {
	c := *t
	c.Problems = make([]models.Problem, len(t.Problems))
	copy(c.Problems, t.Problems)
	return c
}

func copyProgress(p *models.Progress) models.Progress {
	c := *p
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		c.CompletedAt = &at
	}
	return c
}
