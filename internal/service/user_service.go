package service

import (
	"context"
	"fmt"

	"github.com/brikr/codetango/internal/models"
	"github.com/brikr/codetango/internal/repository"
)

type UserService struct {
	users *repository.UserRepository
}

func NewUserService(users *repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// GetLeaderboard returns the top-rated profiles. Rankings come from the
// denormalized user rows, so they reflect the last committed recalc pass.
func (s *UserService) GetLeaderboard(ctx context.Context, limit int) ([]*models.User, error) {
	users, err := s.users.TopByRating(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	return users, nil
}
