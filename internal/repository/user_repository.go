package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registrar/internal/models"
)

const userColumns = `id, username, password_hash, role, student_id, teacher_id, created_at, updated_at`

// UserRepository provides access to login accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername returns the account with the given username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE username = $1", username); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the account with the given ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM users WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts an account outside any transaction.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.create(ctx, r.db, user)
}

// CreateTx inserts an account as part of tx, used when a student or teacher
// record and its login are written together.
func (r *UserRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error {
	return r.create(ctx, tx, user)
}

func (r *UserRepository) create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, username, password_hash, role, student_id, teacher_id, created_at, updated_at)
        VALUES (:id, :username, :password_hash, :role, :student_id, :teacher_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`, passwordHash, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectAffected(res)
}
