package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cryptotopup/internal/cache"
	"cryptotopup/internal/model"
	"cryptotopup/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UserService exposes cached user reads for balance display.
type UserService interface {
	GetUser(ctx context.Context, id uint) (*model.User, error)
	// InvalidateUser drops the cached copy after a balance change.
	InvalidateUser(ctx context.Context, id uint)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func (s *userService) cacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (s *userService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}

func (s *userService) InvalidateUser(ctx context.Context, id uint) {
	_ = s.cache.Delete(ctx, s.cacheKey(id))
}
