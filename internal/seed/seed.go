// Package seed imports a YAML catalog and bootstraps admin accounts.
package seed

import (
	"context"
	"dsatracker/internal/apperrors"
	"dsatracker/internal/logger"
	"dsatracker/internal/models"
	"dsatracker/internal/repositories"
	"dsatracker/internal/tracker"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Catalog is the file format:
//
//	topics:
//	  - title: Arrays
//	    description: Contiguous memory
//	    problems:
//	      - title: Two Sum
//	        difficulty: Easy
//	        leetcodeLink: https://leetcode.com/problems/two-sum/
type Catalog struct {
	Topics []Topic `yaml:"topics"`
}

type Topic struct {
	models.CreateTopicRequest `yaml:",inline"`
	Problems                  []models.AddProblemRequest `yaml:"problems"`
}

type Result struct {
	TopicsCreated int
	TopicsMerged  int
	ProblemsAdded int
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates the whole file before anything is written.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	for i := range c.Topics {
		t := &c.Topics[i]
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("topic #%d: %w", i+1, err)
		}
		for j := range t.Problems {
			if err := t.Problems[j].Validate(); err != nil {
				return nil, fmt.Errorf("topic %q problem #%d: %w", t.Title, j+1, err)
			}
		}
	}
	return &c, nil
}

type Seeder struct {
	catalog *tracker.CatalogService
	users   repositories.UserRepository
}

func NewSeeder(catalog *tracker.CatalogService, users repositories.UserRepository) *Seeder {
	return &Seeder{catalog: catalog, users: users}
}

// EnsureAdmin creates the admin account unless the username is taken. An
// existing account is returned as is when it already is an admin.
func (s *Seeder) EnsureAdmin(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByIdentifier(ctx, req.Username)
	switch {
	case err == nil && existing.Role == models.RoleAdmin:
		return existing, nil
	case err == nil:
		return nil, apperrors.Conflict("user %s exists and is not an admin", req.Username)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, &req, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Admin account created", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Apply creates missing topics and appends missing problems, matching both by
// title. Running it twice with the same catalog changes nothing.
func (s *Seeder) Apply(ctx context.Context, admin models.Identity, c *Catalog) (Result, error) {
	var res Result

	existing, err := s.catalog.ListTopics(ctx)
	if err != nil {
		return res, err
	}
	byTitle := make(map[string]models.Topic, len(existing))
	for _, t := range existing {
		byTitle[strings.ToLower(t.Title)] = t
	}

	for _, seedTopic := range c.Topics {
		topic, found := byTitle[strings.ToLower(seedTopic.Title)]
		if !found {
			req := seedTopic.CreateTopicRequest
			created, err := s.catalog.CreateTopic(ctx, admin, &req)
			if err != nil {
				return res, fmt.Errorf("creating topic %q: %w", seedTopic.Title, err)
			}
			topic = *created
			res.TopicsCreated++
		}

		have := make(map[string]bool, len(topic.Problems))
		for _, p := range topic.Problems {
			have[strings.ToLower(p.Title)] = true
		}

		added := 0
		for _, p := range seedTopic.Problems {
			if have[strings.ToLower(p.Title)] {
				continue
			}
			req := p
			if _, err := s.catalog.AddProblem(ctx, admin, topic.ID, &req); err != nil {
				return res, fmt.Errorf("adding %q to %q: %w", p.Title, seedTopic.Title, err)
			}
			have[strings.ToLower(p.Title)] = true
			added++
		}
		res.ProblemsAdded += added
		if found && added > 0 {
			res.TopicsMerged++
		}
		byTitle[strings.ToLower(seedTopic.Title)] = topic
	}

	return res, nil
}
