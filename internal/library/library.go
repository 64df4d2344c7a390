package library

import (
	"context"
	"errors"
	"time"
)

// Shelves a library entry can sit on.
const (
	ShelfWantToRead = "want_to_read"
	ShelfReading    = "reading"
	ShelfFinished   = "finished"
)

// Entry is one book on a user's personal shelf.
type Entry struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;not null"`
	BookID    int64     `json:"book_id" gorm:"column:book_id;not null"`
	Shelf     string    `json:"shelf" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Entry) TableName() string {
	return "library_entries"
}

func ValidShelf(shelf string) bool {
	switch shelf {
	case ShelfWantToRead, ShelfReading, ShelfFinished:
		return true
	}
	return false
}

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*Entry, error)
	GetForUser(ctx context.Context, userID int64, limit, offset int) ([]*Entry, error)
	Create(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error
	DeleteByID(ctx context.Context, id int64) error
}

var (
	ErrEntryNotFound  = errors.New("library entry not found")
	ErrAlreadyShelved = errors.New("book already in library")
)
