package importer

import (
	"context"
	"errors"
	"time"
)

// Status is the import lifecycle state stored on the entity row itself.
// The empty string marks entities created through normal catalog means.
type Status string

const (
	StatusTemporary Status = "temporary"
	StatusConfirmed Status = "confirmed"
)

var (
	// ErrNotFound: no local record for the id or external key.
	ErrNotFound = errors.New("importer: record not found")
	// ErrConflict: the external-key uniqueness constraint fired; a
	// concurrent prepare imported the same key first.
	ErrConflict = errors.New("importer: external key already imported")
	// ErrExternalFetch covers upstream not-found, timeouts and malformed
	// payloads alike; no local state is left behind when it is returned.
	ErrExternalFetch = errors.New("importer: external catalog fetch failed")
)

// Record is the importable-entity view the workflow needs. Domain entities
// (books, authors) implement it over their own import columns.
type Record interface {
	RecordID() int64
	RecordStatus() Status
	RecordImporter() int64
}

// Repository is the per-entity data access the saga runs over. The backing
// store must hold a uniqueness constraint on the external-key column;
// CreateTemporary reports a violation as ErrConflict.
type Repository interface {
	FindByExternalKey(ctx context.Context, key string) (Record, error)
	FindByID(ctx context.Context, id int64) (Record, error)
	CreateTemporary(ctx context.Context, rec Record, userID int64, reason string) error
	Confirm(ctx context.Context, id int64, reason string) error
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteTemporariesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Fetcher builds an unsaved Record from the external catalog.
type Fetcher interface {
	Fetch(ctx context.Context, key string) (Record, error)
}

// PrepareResult tells the caller what Prepare did and whether a later
// Rollback may delete the record.
type PrepareResult struct {
	Record      Record
	WasImported bool
	CanRollback bool
}
