package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal/notice"
	"gorm.io/gorm"
)

type NoticeRepository struct {
	db *gorm.DB
}

func NewNoticeRepository(db *gorm.DB) notice.RepositoryAPI {
	return &NoticeRepository{db: db}
}

func (r *NoticeRepository) GetActive(ctx context.Context, now time.Time) ([]*notice.Notice, error) {
	var notices []*notice.Notice
	err := r.db.WithContext(ctx).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at DESC").
		Find(&notices).Error
	return notices, err
}

func (r *NoticeRepository) GetByID(ctx context.Context, id int64) (*notice.Notice, error) {
	var n notice.Notice
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notice.ErrNoticeNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *NoticeRepository) Create(ctx context.Context, n *notice.Notice) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NoticeRepository) Update(ctx context.Context, n *notice.Notice) error {
	return r.db.WithContext(ctx).Save(n).Error
}

func (r *NoticeRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&notice.Notice{}).Error
}
