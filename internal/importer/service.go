package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openshelf/openshelf/internal/core/events"
)

// Service runs the prepare/commit/rollback saga for one entity kind.
// It does not serialize concurrent sagas against the same external key;
// the storage-level uniqueness constraint resolves that race.
type Service struct {
	kind    string
	repo    Repository
	fetcher Fetcher
	bus     *events.EventBus
	logger  *slog.Logger
}

func NewService(kind string, repo Repository, fetcher Fetcher, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		kind:    kind,
		repo:    repo,
		fetcher: fetcher,
		bus:     bus,
		logger:  logger,
	}
}

// Prepare resolves an external key to a local record, importing it
// speculatively when it is unseen. Rollback is reserved for the original
// importer when a prior unfinished saga left a temporary row behind.
func (s *Service) Prepare(ctx context.Context, key string, userID int64, action string) (*PrepareResult, error) {
	rec, err := s.repo.FindByExternalKey(ctx, key)
	if err == nil {
		return s.adopt(rec, userID), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	fetched, err := s.fetcher.Fetch(ctx, key)
	if err != nil {
		s.logger.Warn("external catalog fetch failed",
			"kind", s.kind, "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExternalFetch, err)
	}

	if err := s.repo.CreateTemporary(ctx, fetched, userID, action); err != nil {
		if errors.Is(err, ErrConflict) {
			// Someone else imported the key between our lookup and
			// insert; adopt their row instead of failing.
			s.logger.Info("concurrent import detected, re-querying",
				"kind", s.kind, "key", key)
			existing, rerr := s.repo.FindByExternalKey(ctx, key)
			if rerr != nil {
				return nil, fmt.Errorf("%w: conflict re-query: %v", ErrExternalFetch, rerr)
			}
			return s.adopt(existing, userID), nil
		}
		return nil, err
	}

	s.logger.Info("imported temporary record",
		"kind", s.kind,
		"key", key,
		"record_id", fetched.RecordID(),
		"imported_by", userID,
		"reason", action)

	return &PrepareResult{Record: fetched, WasImported: true, CanRollback: true}, nil
}

func (s *Service) adopt(rec Record, userID int64) *PrepareResult {
	if rec.RecordStatus() != StatusTemporary {
		// Durable catalog member; no saga needed.
		return &PrepareResult{Record: rec, WasImported: false, CanRollback: false}
	}
	return &PrepareResult{
		Record:      rec,
		WasImported: true,
		CanRollback: rec.RecordImporter() == userID,
	}
}

// Commit confirms a temporary record after the dependent domain action
// succeeded. Confirmed or never-imported records are left untouched, so a
// duplicate commit is a status no-op.
func (s *Service) Commit(ctx context.Context, id int64, userID int64, action string) error {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if rec.RecordStatus() != StatusTemporary {
		return nil
	}

	if err := s.repo.Confirm(ctx, id, action); err != nil {
		return err
	}

	s.logger.Info("confirmed imported record",
		"kind", s.kind, "record_id", id, "reason", action)

	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewImportConfirmedEvent(s.kind, id, userID, action))
	}
	return nil
}

// Rollback deletes a record this saga imported. It never touches durable
// rows (wasImported=false, or a record another saga confirmed since) and
// treats an already-deleted id as done.
func (s *Service) Rollback(ctx context.Context, id int64, wasImported bool) (bool, error) {
	if !wasImported {
		return false, nil
	}

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if rec.RecordStatus() != StatusTemporary {
		return false, nil
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if deleted {
		s.logger.Info("rolled back imported record", "kind", s.kind, "record_id", id)
		if s.bus != nil {
			_ = s.bus.Publish(ctx, events.NewImportRolledBackEvent(s.kind, id))
		}
	}
	return deleted, nil
}

// CleanupTemporaries deletes temporary records older than maxAge and
// returns the count removed. A zero maxAge removes every temporary record.
func (s *Service) CleanupTemporaries(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)

	removed, err := s.repo.DeleteTemporariesBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.logger.Info("cleaned up stale temporary imports",
			"kind", s.kind, "removed", removed, "max_age", maxAge)
		if s.bus != nil {
			_ = s.bus.Publish(ctx, events.NewImportCleanedUpEvent(s.kind, removed))
		}
	}
	return removed, nil
}

// Kind names the entity kind this service manages.
func (s *Service) Kind() string {
	return s.kind
}
