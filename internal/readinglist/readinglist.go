package readinglist

import (
	"context"
	"errors"
	"time"
)

// ReadingList is a named, ordered collection of books owned by a user.
type ReadingList struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	UserID      int64     `json:"user_id" gorm:"column:user_id;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (ReadingList) TableName() string {
	return "reading_lists"
}

// Item is one book inside a reading list. Items have no owner column of
// their own; ownership resolves through the parent list.
type Item struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	ListID    int64     `json:"list_id" gorm:"column:list_id;not null"`
	BookID    int64     `json:"book_id" gorm:"column:book_id;not null"`
	Position  int       `json:"position"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Item) TableName() string {
	return "reading_list_items"
}

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*ReadingList, error)
	GetForUser(ctx context.Context, userID int64) ([]*ReadingList, error)
	Create(ctx context.Context, l *ReadingList) error
	Update(ctx context.Context, l *ReadingList) error
	DeleteByID(ctx context.Context, id int64) error

	GetItems(ctx context.Context, listID int64) ([]*Item, error)
	GetItemByID(ctx context.Context, id int64) (*Item, error)
	AddItem(ctx context.Context, item *Item) error
	DeleteItemByID(ctx context.Context, id int64) error
}

var (
	ErrListNotFound = errors.New("reading list not found")
	ErrItemNotFound = errors.New("reading list item not found")
)
