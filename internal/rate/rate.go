package rate

import (
	"context"
	"errors"
	"time"
)

// Rate is a user's score and optional review for a book.
type Rate struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	BookID    int64     `json:"book_id" gorm:"column:book_id;not null"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;not null"`
	Score     int       `json:"score" gorm:"not null"`
	Review    string    `json:"review"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Rate) TableName() string {
	return "rates"
}

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*Rate, error)
	GetForBook(ctx context.Context, bookID int64, limit, offset int) ([]*Rate, error)
	GetForUser(ctx context.Context, userID int64, limit, offset int) ([]*Rate, error)
	Create(ctx context.Context, rt *Rate) error
	Update(ctx context.Context, rt *Rate) error
	DeleteByID(ctx context.Context, id int64) error
}

var (
	ErrRateNotFound = errors.New("rate not found")
	ErrAlreadyRated = errors.New("user already rated this book")
)
