package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/openshelf/openshelf/internal/library"
	"gorm.io/gorm"
)

type LibraryRepository struct {
	db *gorm.DB
}

func NewLibraryRepository(db *gorm.DB) library.RepositoryAPI {
	return &LibraryRepository{db: db}
}

func (r *LibraryRepository) GetByID(ctx context.Context, id int64) (*library.Entry, error) {
	var e library.Entry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, library.ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *LibraryRepository) GetForUser(ctx context.Context, userID int64, limit, offset int) ([]*library.Entry, error) {
	var entries []*library.Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, err
}

// Create relies on the (user_id, book_id) unique index to keep one shelf
// entry per book.
func (r *LibraryRepository) Create(ctx context.Context, e *library.Entry) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		if isUniqueViolation(err) {
			return library.ErrAlreadyShelved
		}
		return err
	}
	return nil
}

func (r *LibraryRepository) Update(ctx context.Context, e *library.Entry) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *LibraryRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&library.Entry{}).Error
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
