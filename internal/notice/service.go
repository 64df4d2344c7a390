package notice

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal"
	"github.com/openshelf/openshelf/pkg/logger"
)

type Service struct {
	repo RepositoryAPI
}

func NewService(repo RepositoryAPI) *Service {
	return &Service{repo: repo}
}

// ListNotices returns notices that have not expired.
func (s *Service) ListNotices(ctx context.Context) ([]*Notice, error) {
	notices, err := s.repo.GetActive(ctx, time.Now())
	if err != nil {
		logger.From(ctx).Error("failed to list notices", "error", err)
		return nil, internal.NewInternalError("failed to list notices", err)
	}
	return notices, nil
}

func (s *Service) GetNotice(ctx context.Context, id int64) (*Notice, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNoticeNotFound) {
			return nil, internal.NewNotFoundError("notice not found", internal.ErrCodeNotFound)
		}
		logger.From(ctx).Error("failed to get notice", "notice_id", id, "error", err)
		return nil, internal.NewInternalError("failed to get notice", err)
	}
	return n, nil
}

func (s *Service) CreateNotice(ctx context.Context, dto CreateNoticeDTO, userID int64) (*Notice, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	now := time.Now()
	n := &Notice{
		Title:     dto.Title,
		Body:      dto.Body,
		PostedBy:  userID,
		ExpiresAt: dto.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		logger.From(ctx).Error("failed to create notice", "error", err)
		return nil, internal.NewInternalError("failed to create notice", err)
	}

	logger.From(ctx).Info("notice posted", "notice_id", n.ID, "posted_by", userID)
	return n, nil
}

func (s *Service) UpdateNotice(ctx context.Context, id int64, dto UpdateNoticeDTO) (*Notice, error) {
	n, err := s.GetNotice(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Title != nil {
		if *dto.Title == "" {
			return nil, internal.NewValidationError("title cannot be empty", internal.ErrCodeValidationFailed)
		}
		n.Title = *dto.Title
	}
	if dto.Body != nil {
		n.Body = *dto.Body
	}
	if dto.ExpiresAt != nil {
		n.ExpiresAt = dto.ExpiresAt
	}
	n.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, n); err != nil {
		logger.From(ctx).Error("failed to update notice", "notice_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update notice", err)
	}
	return n, nil
}

func (s *Service) DeleteNotice(ctx context.Context, id int64) error {
	if _, err := s.GetNotice(ctx, id); err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		logger.From(ctx).Error("failed to delete notice", "notice_id", id, "error", err)
		return internal.NewInternalError("failed to delete notice", err)
	}
	return nil
}
