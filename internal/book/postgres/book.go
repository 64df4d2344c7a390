package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/openshelf/openshelf/internal/book"
	"github.com/openshelf/openshelf/internal/importer"
	"gorm.io/gorm"
)

type BookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) GetAll(ctx context.Context, limit, offset int) ([]*book.Book, error) {
	var books []*book.Book
	err := r.db.WithContext(ctx).
		Order("title ASC").
		Limit(limit).
		Offset(offset).
		Find(&books).Error
	return books, err
}

func (r *BookRepository) GetByID(ctx context.Context, id int64) (*book.Book, error) {
	var b book.Book
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookRepository) Create(ctx context.Context, b *book.Book) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BookRepository) Update(ctx context.Context, b *book.Book) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *BookRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&book.Book{}).Error
}

// FindByExternalKey looks a book up by its OpenLibrary key.
func (r *BookRepository) FindByExternalKey(ctx context.Context, key string) (importer.Record, error) {
	var b book.Book
	err := r.db.WithContext(ctx).Where("open_library_key = ?", key).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, importer.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *BookRepository) FindByID(ctx context.Context, id int64) (importer.Record, error) {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, book.ErrBookNotFound) {
			return nil, importer.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *BookRepository) CreateTemporary(ctx context.Context, rec importer.Record, userID int64, reason string) error {
	b, ok := rec.(*book.Book)
	if !ok {
		return fmt.Errorf("unexpected record type %T", rec)
	}

	now := time.Now()
	b.ImportStatus = string(importer.StatusTemporary)
	b.ImportedBy = &userID
	b.ImportedReason = &reason
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		if isUniqueViolation(err) {
			return importer.ErrConflict
		}
		return err
	}
	return nil
}

func (r *BookRepository) Confirm(ctx context.Context, id int64, reason string) error {
	return r.db.WithContext(ctx).Model(&book.Book{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"import_status":   string(importer.StatusConfirmed),
			"imported_reason": reason,
			"updated_at":      time.Now(),
		}).Error
}

func (r *BookRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&book.Book{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *BookRepository) DeleteTemporariesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("import_status = ? AND created_at < ?", string(importer.StatusTemporary), cutoff).
		Delete(&book.Book{})
	return res.RowsAffected, res.Error
}

// isUniqueViolation matches postgres (23505) and sqlite unique constraint
// failures; the latter backs the repository test suites.
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
