package genre

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

func (s *Service) ListGenres(ctx context.Context) ([]*Genre, error) {
	genres, err := s.repo.GetAll(ctx)
	if err != nil {
		logger.From(ctx).Error("failed to list genres", "error", err)
		return nil, internal.NewInternalError("failed to list genres", err)
	}
	return genres, nil
}

func (s *Service) GetGenre(ctx context.Context, id int64) (*Genre, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrGenreNotFound) {
			return nil, internal.NewNotFoundError("genre not found", internal.ErrCodeGenreNotFound)
		}
		logger.From(ctx).Error("failed to get genre", "genre_id", id, "error", err)
		return nil, internal.NewInternalError("failed to get genre", err)
	}
	return g, nil
}

func (s *Service) CreateGenre(ctx context.Context, dto CreateGenreDTO) (*Genre, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	existing, err := s.repo.GetByName(ctx, dto.Name)
	if err != nil && !errors.Is(err, ErrGenreNotFound) {
		logger.From(ctx).Error("failed to check genre name", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("failed to create genre", err)
	}
	if existing != nil {
		return nil, internal.NewConflictError("genre already exists", internal.ErrCodeValidationFailed)
	}

	now := time.Now()
	g := &Genre{
		Name:        dto.Name,
		Description: dto.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, g); err != nil {
		logger.From(ctx).Error("failed to create genre", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("failed to create genre", err)
	}

	logger.From(ctx).Info("genre created", "genre_id", g.ID, "name", g.Name)
	return g, nil
}

func (s *Service) UpdateGenre(ctx context.Context, id int64, dto UpdateGenreDTO) (*Genre, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	g, err := s.GetGenre(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		g.Name = *dto.Name
	}
	if dto.Description != nil {
		g.Description = *dto.Description
	}
	g.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, g); err != nil {
		logger.From(ctx).Error("failed to update genre", "genre_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update genre", err)
	}
	return g, nil
}

func (s *Service) DeleteGenre(ctx context.Context, id int64) error {
	if _, err := s.GetGenre(ctx, id); err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		logger.From(ctx).Error("failed to delete genre", "genre_id", id, "error", err)
		return internal.NewInternalError("failed to delete genre", err)
	}
	return nil
}
