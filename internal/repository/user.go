package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/spendshare/internal/models"
)

type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository создает репозиторий пользователей.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create создает пользователя в базе.
func (r *UserRepository) Create(ctx context.Context, email, passwordHash string, fullName *string) (models.UserProfile, error) {
	var user models.UserProfile

	err := r.db.QueryRow(ctx,
		`INSERT INTO user_profiles (email, password_hash, full_name)
		 VALUES ($1, $2, $3)
		 RETURNING id, email, password_hash, full_name, avatar_url, created_at, updated_at`,
		email, passwordHash, fullName,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user, ErrConflict
		}
		return user, err
	}

	return user, nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (models.UserProfile, error) {
	var user models.UserProfile

	err := r.db.QueryRow(ctx,
		`SELECT id, email, password_hash, full_name, avatar_url, created_at, updated_at
		 FROM user_profiles
		 WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrNotFound
		}
		return user, err
	}

	return user, nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (models.UserProfile, error) {
	var user models.UserProfile

	err := r.db.QueryRow(ctx,
		`SELECT id, email, password_hash, full_name, avatar_url, created_at, updated_at
		 FROM user_profiles
		 WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrNotFound
		}
		return user, err
	}

	return user, nil
}

// UpdateDisplay обновляет отображаемые поля пользователя.
func (r *UserRepository) UpdateDisplay(ctx context.Context, id uuid.UUID, fullName, avatarURL *string) (models.UserProfile, error) {
	var user models.UserProfile

	err := r.db.QueryRow(ctx,
		`UPDATE user_profiles
		 SET full_name = $2,
		     avatar_url = $3,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING id, email, password_hash, full_name, avatar_url, created_at, updated_at`,
		id, fullName, avatarURL,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrNotFound
		}
		return user, err
	}

	return user, nil
}

// UpdatePassword сохраняет новый хэш пароля пользователя.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE user_profiles
		 SET password_hash = $2, updated_at = NOW()
		 WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
