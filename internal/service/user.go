package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rocketscienceinc/xoxo-backend/internal/entity"
)

type UserService interface {
	RegisterUsername(ctx context.Context, uid, username string) (*entity.UserProfile, error)
	GetProfile(ctx context.Context, uid string) (*entity.UserProfile, error)
	ApplyOutcome(ctx context.Context, uid string, outcome entity.Outcome) (*entity.UserProfile, error)
}

type userRepo interface {
	Create(ctx context.Context, profile *entity.UserProfile) error
	GetByUID(ctx context.Context, uid string) (*entity.UserProfile, error)
	Update(ctx context.Context, profile *entity.UserProfile) error
}

type userService struct {
	userRepo userRepo
}

func NewUserService(userRepo userRepo) UserService {
	return &userService{
		userRepo: userRepo,
	}
}

// RegisterUsername - validates the name, reserves it and creates the profile.
// The reservation is arbitrated by the store's unique index, so of two
// concurrent registrations exactly one wins.
func (that *userService) RegisterUsername(ctx context.Context, uid, username string) (*entity.UserProfile, error) {
	trimmed := strings.TrimSpace(username)

	if err := entity.ValidateUsername(trimmed); err != nil {
		return nil, err
	}

	profile := entity.NewUserProfile(uid, trimmed, time.Now().UTC())

	if err := that.userRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

func (that *userService) GetProfile(ctx context.Context, uid string) (*entity.UserProfile, error) {
	profile, err := that.userRepo.GetByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by uid: %w", err)
	}

	return profile, nil
}

// ApplyOutcome - applies a match outcome to the player's XP, rank and
// counters and persists the result.
func (that *userService) ApplyOutcome(ctx context.Context, uid string, outcome entity.Outcome) (*entity.UserProfile, error) {
	profile, err := that.userRepo.GetByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by uid: %w", err)
	}

	profile.ApplyOutcome(outcome)

	if err = that.userRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return profile, nil
}
