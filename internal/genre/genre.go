package genre

import (
	"context"
	"errors"
	"time"
)

type Genre struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null;uniqueIndex"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Genre) TableName() string {
	return "genres"
}

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*Genre, error)
	GetByID(ctx context.Context, id int64) (*Genre, error)
	GetByName(ctx context.Context, name string) (*Genre, error)
	Create(ctx context.Context, g *Genre) error
	Update(ctx context.Context, g *Genre) error
	DeleteByID(ctx context.Context, id int64) error
}

var (
	ErrGenreNotFound = errors.New("genre not found")
	ErrGenreExists   = errors.New("genre already exists")
)
