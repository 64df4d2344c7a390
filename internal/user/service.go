package user

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal"
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/pkg/logger"
)

type Service struct {
	repo       RepositoryAPI
	bcryptCost int
}

func NewService(repo RepositoryAPI, bcryptCost int) *Service {
	return &Service{repo: repo, bcryptCost: bcryptCost}
}

func (s *Service) GetProfile(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, internal.NewNotFoundError("user not found", internal.ErrCodeNotFound)
		}
		logger.From(ctx).Error("failed to get user", "user_id", id, "error", err)
		return nil, internal.NewInternalError("failed to get user", err)
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id int64, dto UpdateProfileDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	u, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		u.Name = *dto.Name
	}
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, u); err != nil {
		logger.From(ctx).Error("failed to update user", "user_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update user", err)
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, id int64, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	u, err := s.GetProfile(ctx, id)
	if err != nil {
		return err
	}

	if err := auth.VerifyPassword(u.PasswordHash, dto.CurrentPassword); err != nil {
		return internal.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		logger.From(ctx).Error("failed to hash password", "user_id", id, "error", err)
		return internal.NewInternalError("failed to change password", err)
	}

	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		logger.From(ctx).Error("failed to update password", "user_id", id, "error", err)
		return internal.NewInternalError("failed to change password", err)
	}

	logger.From(ctx).Info("password changed", "user_id", id)
	return nil
}
