package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/rocketscienceinc/xoxo-backend/internal/apperror"
	"github.com/rocketscienceinc/xoxo-backend/internal/entity"
)

type UserRepository interface {
	Create(ctx context.Context, profile *entity.UserProfile) error
	GetByUID(ctx context.Context, uid string) (*entity.UserProfile, error)
	Update(ctx context.Context, profile *entity.UserProfile) error
}

type userRepository struct {
	conn *sql.DB
}

func NewUserRepository(conn *sql.DB) UserRepository {
	return &userRepository{
		conn: conn,
	}
}

// Create - inserts the profile and reserves its username in one statement;
// the unique index on LOWER(username) arbitrates concurrent registrations.
func (that *userRepository) Create(ctx context.Context, profile *entity.UserProfile) error {
	query := `INSERT INTO users (uid, username, xp, rank, games_played, games_won, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := that.conn.ExecContext(ctx, query,
		profile.UID, profile.Username, profile.XP, profile.Rank,
		profile.GamesPlayed, profile.GamesWon, profile.CreatedAt,
	)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return apperror.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("can't save user: %w", err)
	}

	return nil
}

func (that *userRepository) GetByUID(ctx context.Context, uid string) (*entity.UserProfile, error) {
	query := `SELECT uid, username, xp, rank, games_played, games_won, created_at
		FROM users WHERE uid = ?`

	var profile entity.UserProfile

	err := that.conn.QueryRowContext(ctx, query, uid).Scan(
		&profile.UID, &profile.Username, &profile.XP, &profile.Rank,
		&profile.GamesPlayed, &profile.GamesWon, &profile.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find user: %w", err)
	}

	return &profile, nil
}

func (that *userRepository) Update(ctx context.Context, profile *entity.UserProfile) error {
	query := `UPDATE users SET xp = ?, rank = ?, games_played = ?, games_won = ? WHERE uid = ?`

	result, err := that.conn.ExecContext(ctx, query,
		profile.XP, profile.Rank, profile.GamesPlayed, profile.GamesWon, profile.UID,
	)
	if err != nil {
		return fmt.Errorf("can't update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't check update result: %w", err)
	}

	if affected == 0 {
		return apperror.ErrUserNotFound
	}

	return nil
}
