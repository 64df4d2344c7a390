package notice

import (
	"context"
	"errors"
	"time"
)

// Notice is a site-wide announcement shown on the landing page.
type Notice struct {
	ID        int64      `json:"id" gorm:"primaryKey"`
	Title     string     `json:"title" gorm:"not null"`
	Body      string     `json:"body"`
	PostedBy  int64      `json:"posted_by" gorm:"column:posted_by"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" gorm:"column:expires_at"`
	CreatedAt time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Notice) TableName() string {
	return "notices"
}

type CreateNoticeDTO struct {
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (dto CreateNoticeDTO) Validate() error {
	if dto.Title == "" {
		return errors.New("title is required")
	}
	return nil
}

type UpdateNoticeDTO struct {
	Title     *string    `json:"title,omitempty"`
	Body      *string    `json:"body,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type RepositoryAPI interface {
	GetActive(ctx context.Context, now time.Time) ([]*Notice, error)
	GetByID(ctx context.Context, id int64) (*Notice, error)
	Create(ctx context.Context, n *Notice) error
	Update(ctx context.Context, n *Notice) error
	DeleteByID(ctx context.Context, id int64) error
}

var ErrNoticeNotFound = errors.New("notice not found")
