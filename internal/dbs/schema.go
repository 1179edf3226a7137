package dbs

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// seq keeps insertion order, which is the display order of topics and
// problems. The unique (user_id, problem_id) key backs the progress toggle.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id CHAR(36) NOT NULL,
		full_name VARCHAR(100) NOT NULL,
		username VARCHAR(50) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role ENUM('admin', 'user') NOT NULL DEFAULT 'user',
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_users_id (id),
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS topics (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id CHAR(36) NOT NULL,
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_topics_id (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS problems (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id CHAR(36) NOT NULL,
		topic_id CHAR(36) NOT NULL,
		title VARCHAR(255) NOT NULL,
		difficulty ENUM('Easy', 'Medium', 'Hard') NOT NULL,
		leetcode_link VARCHAR(2048) NOT NULL DEFAULT '',
		youtube_link VARCHAR(2048) NOT NULL DEFAULT '',
		article_link VARCHAR(2048) NOT NULL DEFAULT '',
		UNIQUE KEY uq_problems_id (id),
		KEY idx_problems_topic (topic_id, seq)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_progress (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id CHAR(36) NOT NULL,
		user_id CHAR(36) NOT NULL,
		topic_id CHAR(36) NOT NULL,
		problem_id CHAR(36) NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		completed_at DATETIME(6) NULL,
		UNIQUE KEY uq_progress_id (id),
		UNIQUE KEY uq_user_problem (user_id, problem_id),
		KEY idx_progress_topic (topic_id),
		KEY idx_progress_problem (problem_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates missing tables. Existing tables are left untouched.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
