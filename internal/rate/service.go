package rate

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal"
	"github.com/openshelf/openshelf/internal/importer"
	"github.com/openshelf/openshelf/pkg/logger"
)

// BookResolver confirms a local book id exists before a rate is attached
// to it. The importer saga covers the external-key path instead.
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

// CreateRate attaches a score to a book. When the book is addressed by
// OpenLibrary key it is imported speculatively first; the import is
// confirmed only after the rate row lands, and rolled back when it does
// not.
func (s *Service) CreateRate(ctx context.Context, dto CreateRateDTO, userID int64) (*Rate, error) {
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
		res, err := s.bookImports.Prepare(ctx, *dto.OpenLibraryKey, userID, "rate")
		if err != nil {
			if errors.Is(err, importer.ErrExternalFetch) {
				return nil, internal.NewExternalError("failed to import book from external catalog",
					internal.ErrCodeExternalImportFailed, err)
			}
			return nil, internal.NewInternalError("failed to prepare book for rating", err)
		}
		prepare = res
		bookID = res.Record.RecordID()
	}

	now := time.Now()
	rt := &Rate{
		BookID:    bookID,
		UserID:    userID,
		Score:     dto.Score,
		Review:    dto.Review,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, rt); err != nil {
		s.rollbackPrepare(ctx, prepare)
		if errors.Is(err, ErrAlreadyRated) {
			return nil, internal.NewConflictError("you already rated this book", internal.ErrCodeImportConflict)
		}
		logger.From(ctx).Error("failed to create rate",
			"book_id", bookID, "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to create rate", err)
	}

	if prepare != nil && prepare.WasImported {
		if err := s.bookImports.Commit(ctx, bookID, userID, "rate"); err != nil {
			// The rate row is in; a stuck temporary book is recoverable by
			// the cleanup sweep, losing the rate is not. Log and keep going.
			logger.From(ctx).Error("failed to confirm imported book after rating",
				"book_id", bookID, "rate_id", rt.ID, "error", err)
		}
	}

	logger.From(ctx).Info("rate created",
		"rate_id", rt.ID, "book_id", bookID, "user_id", userID, "score", dto.Score)
	return rt, nil
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

func (s *Service) GetRate(ctx context.Context, id int64) (*Rate, error) {
	rt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRateNotFound) {
			return nil, internal.NewNotFoundError("rate not found", internal.ErrCodeRateNotFound)
		}
		return nil, internal.NewInternalError("failed to get rate", err)
	}
	return rt, nil
}

func (s *Service) ListForBook(ctx context.Context, bookID int64, limit, offset int) ([]*Rate, error) {
	rates, err := s.repo.GetForBook(ctx, bookID, limit, offset)
	if err != nil {
		logger.From(ctx).Error("failed to list rates", "book_id", bookID, "error", err)
		return nil, internal.NewInternalError("failed to list rates", err)
	}
	return rates, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*Rate, error) {
	rates, err := s.repo.GetForUser(ctx, userID, limit, offset)
	if err != nil {
		logger.From(ctx).Error("failed to list user rates", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to list rates", err)
	}
	return rates, nil
}

func (s *Service) UpdateRate(ctx context.Context, id int64, dto UpdateRateDTO) (*Rate, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	rt, err := s.GetRate(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Score != nil {
		rt.Score = *dto.Score
	}
	if dto.Review != nil {
		rt.Review = *dto.Review
	}
	rt.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, rt); err != nil {
		logger.From(ctx).Error("failed to update rate", "rate_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update rate", err)
	}
	return rt, nil
}

func (s *Service) DeleteRate(ctx context.Context, id int64) error {
	if _, err := s.GetRate(ctx, id); err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		logger.From(ctx).Error("failed to delete rate", "rate_id", id, "error", err)
		return internal.NewInternalError("failed to delete rate", err)
	}
	return nil
}
