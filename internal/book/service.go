package book

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

func (s *Service) ListBooks(ctx context.Context, limit, offset int) ([]*Book, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	books, err := s.repo.GetAll(ctx, limit, offset)
	if err != nil {
		logger.From(ctx).Error("failed to list books", "error", err)
		return nil, internal.NewInternalError("failed to list books", err)
	}
	return books, nil
}

func (s *Service) GetBook(ctx context.Context, id int64) (*Book, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			return nil, internal.NewNotFoundError("book not found", internal.ErrCodeBookNotFound)
		}
		logger.From(ctx).Error("failed to get book", "book_id", id, "error", err)
		return nil, internal.NewInternalError("failed to get book", err)
	}
	return b, nil
}

func (s *Service) CreateBook(ctx context.Context, dto CreateBookDTO) (*Book, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	now := time.Now()
	b := &Book{
		Title:       dto.Title,
		Description: dto.Description,
		AuthorNames: dto.AuthorNames,
		CoverURL:    dto.CoverURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		logger.From(ctx).Error("failed to create book", "title", dto.Title, "error", err)
		return nil, internal.NewInternalError("failed to create book", err)
	}

	logger.From(ctx).Info("book created", "book_id", b.ID, "title", b.Title)
	return b, nil
}

func (s *Service) UpdateBook(ctx context.Context, id int64, dto UpdateBookDTO) (*Book, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	b, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Title != nil {
		b.Title = *dto.Title
	}
	if dto.Description != nil {
		b.Description = *dto.Description
	}
	if dto.AuthorNames != nil {
		b.AuthorNames = *dto.AuthorNames
	}
	if dto.CoverURL != nil {
		b.CoverURL = dto.CoverURL
	}
	b.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, b); err != nil {
		logger.From(ctx).Error("failed to update book", "book_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update book", err)
	}
	return b, nil
}

func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	if _, err := s.GetBook(ctx, id); err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		logger.From(ctx).Error("failed to delete book", "book_id", id, "error", err)
		return internal.NewInternalError("failed to delete book", err)
	}

	logger.From(ctx).Info("book deleted", "book_id", id)
	return nil
}
