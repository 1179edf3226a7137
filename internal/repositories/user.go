package repositories

import (
	"context"
	"database/sql"
	"dsatracker/internal/apperrors"
	"dsatracker/internal/models"
	"dsatracker/internal/utils"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type UserRepository interface {
	CreateUser(ctx context.Context, req *models.RegisterRequest, role models.Role) (*models.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

const selectUsers = `SELECT id, full_name, username, email, password_hash, role, created_at FROM users`

func (r *userRepository) CreateUser(ctx context.Context, req *models.RegisterRequest, role models.Role) (*models.User, error) {
	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
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

	query := `INSERT INTO users (id, full_name, username, email, password_hash, role, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		user.ID, user.FullName, user.Username, user.Email, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil {
		if apperrors.IsDuplicateEntry(err) {
			return nil, apperrors.Conflict("username or email already exists")
		}
		return nil, apperrors.Store("create user", err)
	}

	return user, nil
}

func (r *userRepository) GetUserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, selectUsers+` WHERE username = ? OR email = ? LIMIT 1`, identifier, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Store("get user by identifier", err)
	}
	return &user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, selectUsers+` WHERE id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Store("get user", err)
	}
	return &user, nil
}
