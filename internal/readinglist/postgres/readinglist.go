package postgres

import (
	"context"
	"errors"

	"github.com/openshelf/openshelf/internal/readinglist"
	"gorm.io/gorm"
)

type ReadingListRepository struct {
	db *gorm.DB
}

func NewReadingListRepository(db *gorm.DB) readinglist.RepositoryAPI {
	return &ReadingListRepository{db: db}
}

func (r *ReadingListRepository) GetByID(ctx context.Context, id int64) (*readinglist.ReadingList, error) {
	var l readinglist.ReadingList
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, readinglist.ErrListNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *ReadingListRepository) GetForUser(ctx context.Context, userID int64) ([]*readinglist.ReadingList, error) {
	var lists []*readinglist.ReadingList
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&lists).Error
	return lists, err
}

func (r *ReadingListRepository) Create(ctx context.Context, l *readinglist.ReadingList) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *ReadingListRepository) Update(ctx context.Context, l *readinglist.ReadingList) error {
	return r.db.WithContext(ctx).Save(l).Error
}

// DeleteByID removes the list and its items in one transaction.
func (r *ReadingListRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", id).Delete(&readinglist.Item{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&readinglist.ReadingList{}).Error
	})
}

func (r *ReadingListRepository) GetItems(ctx context.Context, listID int64) ([]*readinglist.Item, error) {
	var items []*readinglist.Item
	err := r.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Order("position ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *ReadingListRepository) GetItemByID(ctx context.Context, id int64) (*readinglist.Item, error) {
	var item readinglist.Item
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, readinglist.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *ReadingListRepository) AddItem(ctx context.Context, item *readinglist.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *ReadingListRepository) DeleteItemByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&readinglist.Item{}).Error
}
