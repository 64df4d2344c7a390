package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/openshelf/openshelf/internal/author"
	"github.com/openshelf/openshelf/internal/importer"
	"gorm.io/gorm"
)

type AuthorRepository struct {
	db *gorm.DB
}

func NewAuthorRepository(db *gorm.DB) *AuthorRepository {
	return &AuthorRepository{db: db}
}

func (r *AuthorRepository) GetAll(ctx context.Context, limit, offset int) ([]*author.Author, error) {
	var authors []*author.Author
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Limit(limit).
		Offset(offset).
		Find(&authors).Error
	return authors, err
}

func (r *AuthorRepository) GetByID(ctx context.Context, id int64) (*author.Author, error) {
	var a author.Author
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, author.ErrAuthorNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AuthorRepository) Create(ctx context.Context, a *author.Author) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AuthorRepository) Update(ctx context.Context, a *author.Author) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *AuthorRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&author.Author{}).Error
}

func (r *AuthorRepository) FindByExternalKey(ctx context.Context, key string) (importer.Record, error) {
	var a author.Author
	err := r.db.WithContext(ctx).Where("open_library_key = ?", key).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, importer.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AuthorRepository) FindByID(ctx context.Context, id int64) (importer.Record, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, author.ErrAuthorNotFound) {
			return nil, importer.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *AuthorRepository) CreateTemporary(ctx context.Context, rec importer.Record, userID int64, reason string) error {
	a, ok := rec.(*author.Author)
	if !ok {
		return fmt.Errorf("unexpected record type %T", rec)
	}

	now := time.Now()
	a.ImportStatus = string(importer.StatusTemporary)
	a.ImportedBy = &userID
	a.ImportedReason = &reason
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return importer.ErrConflict
		}
		return err
	}
	return nil
}

func (r *AuthorRepository) Confirm(ctx context.Context, id int64, reason string) error {
	return r.db.WithContext(ctx).Model(&author.Author{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"import_status":   string(importer.StatusConfirmed),
			"imported_reason": reason,
			"updated_at":      time.Now(),
		}).Error
}

func (r *AuthorRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&author.Author{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AuthorRepository) DeleteTemporariesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("import_status = ? AND created_at < ?", string(importer.StatusTemporary), cutoff).
		Delete(&author.Author{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
