package library

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal"
	"github.com/openshelf/openshelf/internal/importer"
	"github.com/openshelf/openshelf/pkg/logger"
)

// BookResolver confirms a local book id exists before shelving it.
type BookResolver interface {
	FindByID(ctx context.Context, id int64) (importer.Record, error)
}

type Service struct {
	repo        RepositoryAPI
	books       BookResolver
	bookImports *importer.Service
}

func NewService(repo RepositoryAPI, books BookResolver, bookImports *importer.Service) *Service {
	return &Service{
		repo:        repo,
		books:       books,
		bookImports: bookImports,
	}
}

// AddEntry shelves a book for the user, importing it speculatively when it
// is addressed by OpenLibrary key and unseen locally. The import commits
// only after the shelf row lands.
func (s *Service) AddEntry(ctx context.Context, dto AddEntryDTO, userID int64) (*Entry, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	var (
		bookID  int64
		prepare *importer.PrepareResult
	)

	if dto.BookID != nil {
		if _, err := s.books.FindByID(ctx, *dto.BookID); err != nil {
			if errors.Is(err, importer.ErrNotFound) {
				return nil, internal.NewNotFoundError("book not found", internal.ErrCodeBookNotFound)
			}
			return nil, internal.NewInternalError("failed to resolve book", err)
		}
		bookID = *dto.BookID
	} else {
		res, err := s.bookImports.Prepare(ctx, *dto.OpenLibraryKey, userID, "library")
		if err != nil {
			if errors.Is(err, importer.ErrExternalFetch) {
				return nil, internal.NewExternalError("failed to import book from external catalog",
					internal.ErrCodeExternalImportFailed, err)
			}
			return nil, internal.NewInternalError("failed to prepare book for shelving", err)
		}
		prepare = res
		bookID = res.Record.RecordID()
	}

	now := time.Now()
	e := &Entry{
		UserID:    userID,
		BookID:    bookID,
		Shelf:     dto.Shelf,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		s.rollbackPrepare(ctx, prepare)
		if errors.Is(err, ErrAlreadyShelved) {
			return nil, internal.NewConflictError("book already in library", internal.ErrCodeImportConflict)
		}
		logger.From(ctx).Error("failed to add library entry",
			"book_id", bookID, "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to add library entry", err)
	}

	if prepare != nil && prepare.WasImported {
		if err := s.bookImports.Commit(ctx, bookID, userID, "library"); err != nil {
			logger.From(ctx).Error("failed to confirm imported book after shelving",
				"book_id", bookID, "entry_id", e.ID, "error", err)
		}
	}

	logger.From(ctx).Info("library entry added",
		"entry_id", e.ID, "book_id", bookID, "user_id", userID, "shelf", dto.Shelf)
	return e, nil
}

func (s *Service) rollbackPrepare(ctx context.Context, prepare *importer.PrepareResult) {
	if prepare == nil || !prepare.WasImported || !prepare.CanRollback {
		return
	}
	if _, err := s.bookImports.Rollback(ctx, prepare.Record.RecordID(), true); err != nil {
		logger.From(ctx).Error("failed to roll back imported book",
			"book_id", prepare.Record.RecordID(), "error", err)
	}
}

func (s *Service) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return nil, internal.NewNotFoundError("library entry not found", internal.ErrCodeNotFound)
		}
		return nil, internal.NewInternalError("failed to get library entry", err)
	}
	return e, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*Entry, error) {
	entries, err := s.repo.GetForUser(ctx, userID, limit, offset)
	if err != nil {
		logger.From(ctx).Error("failed to list library entries", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to list library entries", err)
	}
	return entries, nil
}

func (s *Service) MoveEntry(ctx context.Context, id int64, dto MoveEntryDTO) (*Entry, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	e, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	e.Shelf = dto.Shelf
	e.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, e); err != nil {
		logger.From(ctx).Error("failed to move library entry", "entry_id", id, "error", err)
		return nil, internal.NewInternalError("failed to move library entry", err)
	}
	return e, nil
}

func (s *Service) RemoveEntry(ctx context.Context, id int64) error {
	if _, err := s.GetEntry(ctx, id); err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		logger.From(ctx).Error("failed to remove library entry", "entry_id", id, "error", err)
		return internal.NewInternalError("failed to remove library entry", err)
	}
	return nil
}
