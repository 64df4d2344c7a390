package book

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal/importer"
)

// Book is a catalog entry. Externally-sourced books carry the import
// lifecycle columns; books created through the normal catalog flow leave
// them empty.
type Book struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	Title          string     `json:"title" gorm:"not null"`
	Description    string     `json:"description"`
	CoverURL       *string    `json:"cover_url,omitempty" gorm:"column:cover_url"`
	AuthorNames    string     `json:"author_names" gorm:"column:author_names"`
	OpenLibraryKey *string    `json:"open_library_key,omitempty" gorm:"column:open_library_key;uniqueIndex"`
	ImportStatus   string     `json:"import_status,omitempty" gorm:"column:import_status"`
	ImportedBy     *int64     `json:"imported_by,omitempty" gorm:"column:imported_by"`
	ImportedReason *string    `json:"imported_reason,omitempty" gorm:"column:imported_reason"`
	CreatedAt      time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (Book) TableName() string {
	return "books"
}

func (b *Book) RecordID() int64 {
	return b.ID
}

func (b *Book) RecordStatus() importer.Status {
	return importer.Status(b.ImportStatus)
}

func (b *Book) RecordImporter() int64 {
	if b.ImportedBy == nil {
		return 0
	}
	return *b.ImportedBy
}

// IsTemporary reports whether the book is a speculative import awaiting
// confirmation.
func (b *Book) IsTemporary() bool {
	return b.ImportStatus == string(importer.StatusTemporary)
}

type RepositoryAPI interface {
	GetAll(ctx context.Context, limit, offset int) ([]*Book, error)
	GetByID(ctx context.Context, id int64) (*Book, error)
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, b *Book) error
	DeleteByID(ctx context.Context, id int64) error
}

var (
	ErrBookNotFound = errors.New("book not found")
)
