package author

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal"
	"github.com/openshelf/openshelf/internal/importer"
	"github.com/openshelf/openshelf/pkg/logger"
)

type Service struct {
	repo      RepositoryAPI
	importSvc *importer.Service
}

func NewService(repo RepositoryAPI, importSvc *importer.Service) *Service {
	return &Service{repo: repo, importSvc: importSvc}
}

func (s *Service) ListAuthors(ctx context.Context, limit, offset int) ([]*Author, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	authors, err := s.repo.GetAll(ctx, limit, offset)
	if err != nil {
		logger.From(ctx).Error("failed to list authors", "error", err)
		return nil, internal.NewInternalError("failed to list authors", err)
	}
	return authors, nil
}

func (s *Service) GetAuthor(ctx context.Context, id int64) (*Author, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAuthorNotFound) {
			return nil, internal.NewNotFoundError("author not found", internal.ErrCodeAuthorNotFound)
		}
		logger.From(ctx).Error("failed to get author", "author_id", id, "error", err)
		return nil, internal.NewInternalError("failed to get author", err)
	}
	return a, nil
}

func (s *Service) CreateAuthor(ctx context.Context, dto CreateAuthorDTO) (*Author, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	now := time.Now()
	a := &Author{
		Name:      dto.Name,
		Bio:       dto.Bio,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		logger.From(ctx).Error("failed to create author", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("failed to create author", err)
	}

	logger.From(ctx).Info("author created", "author_id", a.ID, "name", a.Name)
	return a, nil
}

// ImportAuthor runs the full import saga for an external author key:
// prepare pulls the record in as temporary, commit promotes it right away
// since there is no dependent action to wait for.
func (s *Service) ImportAuthor(ctx context.Context, dto ImportAuthorDTO, userID int64) (*Author, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	res, err := s.importSvc.Prepare(ctx, dto.OpenLibraryKey, userID, "create")
	if err != nil {
		if errors.Is(err, importer.ErrExternalFetch) {
			return nil, internal.NewExternalError("failed to import author from external catalog",
				internal.ErrCodeExternalImportFailed, err)
		}
		logger.From(ctx).Error("author import prepare failed",
			"key", dto.OpenLibraryKey, "error", err)
		return nil, internal.NewInternalError("failed to import author", err)
	}

	if err := s.importSvc.Commit(ctx, res.Record.RecordID(), userID, "create"); err != nil {
		logger.From(ctx).Error("author import commit failed",
			"author_id", res.Record.RecordID(), "error", err)
		if res.WasImported && res.CanRollback {
			if _, rbErr := s.importSvc.Rollback(ctx, res.Record.RecordID(), true); rbErr != nil {
				logger.From(ctx).Error("author import rollback failed",
					"author_id", res.Record.RecordID(), "error", rbErr)
			}
		}
		return nil, internal.NewInternalError("failed to import author", err)
	}

	return s.GetAuthor(ctx, res.Record.RecordID())
}

func (s *Service) UpdateAuthor(ctx context.Context, id int64, dto UpdateAuthorDTO) (*Author, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	a, err := s.GetAuthor(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		a.Name = *dto.Name
	}
	if dto.Bio != nil {
		a.Bio = *dto.Bio
	}
	a.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, a); err != nil {
		logger.From(ctx).Error("failed to update author", "author_id", id, "error", err)
		return nil, internal.NewInternalError("failed to update author", err)
	}
	return a, nil
}

func (s *Service) DeleteAuthor(ctx context.Context, id int64) error {
	if _, err := s.GetAuthor(ctx, id); err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		logger.From(ctx).Error("failed to delete author", "author_id", id, "error", err)
		return internal.NewInternalError("failed to delete author", err)
	}

	logger.From(ctx).Info("author deleted", "author_id", id)
	return nil
}
