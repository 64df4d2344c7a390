package author

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal/importer"
)

// Author is a catalog author. Like books, authors can enter the catalog
// either directly or through a speculative OpenLibrary import.
type Author struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	Bio            string    `json:"bio"`
	OpenLibraryKey *string   `json:"open_library_key,omitempty" gorm:"column:open_library_key;uniqueIndex"`
	ImportStatus   string    `json:"import_status,omitempty" gorm:"column:import_status"`
	ImportedBy     *int64    `json:"imported_by,omitempty" gorm:"column:imported_by"`
	ImportedReason *string   `json:"imported_reason,omitempty" gorm:"column:imported_reason"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Author) TableName() string {
	return "authors"
}

func (a *Author) RecordID() int64 {
	return a.ID
}

func (a *Author) RecordStatus() importer.Status {
	return importer.Status(a.ImportStatus)
}

func (a *Author) RecordImporter() int64 {
	if a.ImportedBy == nil {
		return 0
	}
	return *a.ImportedBy
}

type RepositoryAPI interface {
	GetAll(ctx context.Context, limit, offset int) ([]*Author, error)
	GetByID(ctx context.Context, id int64) (*Author, error)
	Create(ctx context.Context, a *Author) error
	Update(ctx context.Context, a *Author) error
	DeleteByID(ctx context.Context, id int64) error
}

var (
	ErrAuthorNotFound = errors.New("author not found")
)
