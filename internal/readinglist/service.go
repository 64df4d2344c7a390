package readinglist

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal"
	"github.com/openshelf/openshelf/internal/importer"
	"github.com/openshelf/openshelf/pkg/logger"
)

// BookResolver confirms a book id exists before it joins a list.
type BookResolver interface {
	FindByID(ctx context.Context, id int64) (importer.Record, error)
}

type Service struct {
	repo  RepositoryAPI
	books BookResolver
}

func NewService(repo RepositoryAPI, books BookResolver) *Service {
	return &Service{repo: repo, books: books}
}

func (s *Service) CreateList(ctx context.Context, dto CreateListDTO, userID int64) (*ReadingList, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	now := time.Now()
	l := &ReadingList{
		UserID:      userID,
		Name:        dto.Name,
		Description: dto.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, l); err != nil {
		logger.From(ctx).Error("failed to create reading list", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to create reading list", err)
	}

	logger.From(ctx).Info("reading list created", "list_id", l.ID, "user_id", userID)
	return l, nil
}

func (s *Service) GetList(ctx context.Context, id int64) (*ReadingList, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrListNotFound) {
			return nil, internal.NewNotFoundError("reading list not found", internal.ErrCodeNotFound)
		}
		return nil, internal.NewInternalError("failed to get reading list", err)
	}
	return l, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*ReadingList, error) {
	lists, err := s.repo.GetForUser(ctx, userID)
	if err != nil {
		logger.From(ctx).Error("failed to list reading lists", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to list reading lists", err)
	}
	return lists, nil
}

func (s *Service) UpdateList(ctx context.Context, id int64, dto UpdateListDTO) (*ReadingList, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	l, err := s.GetList(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		l.Name = *dto.Name
	}
	if dto.Description != nil {
		l.Description = *dto.Description
	}
	l.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, l); err != nil {
		logger.From(ctx).Error("failed to update reading list", "list_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update reading list", err)
	}
	return l, nil
}

func (s *Service) DeleteList(ctx context.Context, id int64) error {
	if _, err := s.GetList(ctx, id); err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		logger.From(ctx).Error("failed to delete reading list", "list_id", id, "error", err)
		return internal.NewInternalError("failed to delete reading list", err)
	}
	return nil
}

func (s *Service) GetItems(ctx context.Context, listID int64) ([]*Item, error) {
	if _, err := s.GetList(ctx, listID); err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, listID)
	if err != nil {
		logger.From(ctx).Error("failed to list items", "list_id", listID, "error", err)
		return nil, internal.NewInternalError("failed to list items", err)
	}
	return items, nil
}

func (s *Service) AddItem(ctx context.Context, listID int64, dto AddItemDTO) (*Item, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	if _, err := s.GetList(ctx, listID); err != nil {
		return nil, err
	}
	if _, err := s.books.FindByID(ctx, dto.BookID); err != nil {
		if errors.Is(err, importer.ErrNotFound) {
			return nil, internal.NewNotFoundError("book not found", internal.ErrCodeBookNotFound)
		}
		return nil, internal.NewInternalError("failed to resolve book", err)
	}

	item := &Item{
		ListID:    listID,
		BookID:    dto.BookID,
		Position:  dto.Position,
		Note:      dto.Note,
		CreatedAt: time.Now(),
	}

	if err := s.repo.AddItem(ctx, item); err != nil {
		logger.From(ctx).Error("failed to add item", "list_id", listID, "error", err)
		return nil, internal.NewInternalError("failed to add item", err)
	}
	return item, nil
}

func (s *Service) RemoveItem(ctx context.Context, itemID int64) error {
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return internal.NewNotFoundError("reading list item not found", internal.ErrCodeNotFound)
		}
		return internal.NewInternalError("failed to get item", err)
	}

	if err := s.repo.DeleteItemByID(ctx, itemID); err != nil {
		logger.From(ctx).Error("failed to remove item", "item_id", itemID, "error", err)
		return internal.NewInternalError("failed to remove item", err)
	}
	return nil
}
