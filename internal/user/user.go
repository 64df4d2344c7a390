package user

import (
	"context"
	"errors"
	"time"
)

type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"not null;uniqueIndex"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	IsActive     bool      `json:"is_active" gorm:"column:is_active"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

var ErrUserNotFound = errors.New("user not found")
