package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/openshelf/openshelf/internal/rate"
	"gorm.io/gorm"
)

type RateRepository struct {
	db *gorm.DB
}

func NewRateRepository(db *gorm.DB) rate.RepositoryAPI {
	return &RateRepository{db: db}
}

func (r *RateRepository) GetByID(ctx context.Context, id int64) (*rate.Rate, error) {
	var rt rate.Rate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, rate.ErrRateNotFound
		}
		return nil, err
	}
	return &rt, nil
}

func (r *RateRepository) GetForBook(ctx context.Context, bookID int64, limit, offset int) ([]*rate.Rate, error) {
	var rates []*rate.Rate
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rates).Error
	return rates, err
}

func (r *RateRepository) GetForUser(ctx context.Context, userID int64, limit, offset int) ([]*rate.Rate, error) {
	var rates []*rate.Rate
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rates).Error
	return rates, err
}

// Create relies on the (book_id, user_id) unique index to enforce one
// rate per user per book.
func (r *RateRepository) Create(ctx context.Context, rt *rate.Rate) error {
	if err := r.db.WithContext(ctx).Create(rt).Error; err != nil {
		if isUniqueViolation(err) {
			return rate.ErrAlreadyRated
		}
		return err
	}
	return nil
}

func (r *RateRepository) Update(ctx context.Context, rt *rate.Rate) error {
	return r.db.WithContext(ctx).Save(rt).Error
}

func (r *RateRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&rate.Rate{}).Error
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
