package importer_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openshelf/openshelf/internal/core/events"
	"github.com/openshelf/openshelf/internal/importer"
)

func TestImporterService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Importer Service Suite")
}

type fakeRecord struct {
	id         int64
	key        string
	status     importer.Status
	importedBy int64
	createdAt  time.Time
}

func (r *fakeRecord) RecordID() int64               { return r.id }
func (r *fakeRecord) RecordStatus() importer.Status { return r.status }
func (r *fakeRecord) RecordImporter() int64         { return r.importedBy }

// fakeRepository is an in-memory Repository with an external-key
// uniqueness constraint, like the real tables have.
type fakeRepository struct {
	nextID int64
	byID   map[int64]*fakeRecord

	// simulates a concurrent import landing between lookup and insert
	conflictOnInsert map[string]*fakeRecord
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byID:             make(map[int64]*fakeRecord),
		conflictOnInsert: make(map[string]*fakeRecord),
	}
}

func (f *fakeRepository) insert(rec *fakeRecord) *fakeRecord {
	f.nextID++
	rec.id = f.nextID
	f.byID[rec.id] = rec
	return rec
}

func (f *fakeRepository) FindByExternalKey(_ context.Context, key string) (importer.Record, error) {
	for _, rec := range f.byID {
		if rec.key == key {
			return rec, nil
		}
	}
	return nil, importer.ErrNotFound
}

func (f *fakeRepository) FindByID(_ context.Context, id int64) (importer.Record, error) {
	rec, ok := f.byID[id]
	if !ok {
		return nil, importer.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRepository) CreateTemporary(_ context.Context, rec importer.Record, userID int64, reason string) error {
	fr := rec.(*fakeRecord)

	if competitor, ok := f.conflictOnInsert[fr.key]; ok {
		delete(f.conflictOnInsert, fr.key)
		f.insert(competitor)
		return importer.ErrConflict
	}

	for _, existing := range f.byID {
		if existing.key == fr.key {
			return importer.ErrConflict
		}
	}

	fr.status = importer.StatusTemporary
	fr.importedBy = userID
	if fr.createdAt.IsZero() {
		fr.createdAt = time.Now()
	}
	f.insert(fr)
	return nil
}

func (f *fakeRepository) Confirm(_ context.Context, id int64, _ string) error {
	rec, ok := f.byID[id]
	if !ok {
		return importer.ErrNotFound
	}
	rec.status = importer.StatusConfirmed
	return nil
}

func (f *fakeRepository) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := f.byID[id]; !ok {
		return false, nil
	}
	delete(f.byID, id)
	return true, nil
}

func (f *fakeRepository) DeleteTemporariesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for id, rec := range f.byID {
		if rec.status == importer.StatusTemporary && rec.createdAt.Before(cutoff) {
			delete(f.byID, id)
			removed++
		}
	}
	return removed, nil
}

type fakeFetcher struct {
	calls    int
	failWith error
	missing  map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, key string) (importer.Record, error) {
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	if f.missing[key] {
		return nil, fmt.Errorf("upstream has no entry for %s", key)
	}
	return &fakeRecord{key: key}, nil
}

var _ = Describe("Importer Service", func() {
	var (
		repo    *fakeRepository
		fetcher *fakeFetcher
		svc     *importer.Service
		ctx     context.Context
		lg      *slog.Logger
	)

	BeforeEach(func() {
		repo = newFakeRepository()
		fetcher = &fakeFetcher{missing: make(map[string]bool)}
		lg = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = importer.NewService("book", repo, fetcher, nil, lg)
		ctx = context.Background()
	})

	Describe("Prepare", func() {
		It("imports an unseen key as a temporary record", func() {
			res, err := svc.Prepare(ctx, "/works/OL45804W", 7, "rate")
			Expect(err).NotTo(HaveOccurred())

			Expect(res.WasImported).To(BeTrue())
			Expect(res.CanRollback).To(BeTrue())
			Expect(res.Record.RecordStatus()).To(Equal(importer.StatusTemporary))
			Expect(res.Record.RecordImporter()).To(Equal(int64(7)))

			stored, err := repo.FindByExternalKey(ctx, "/works/OL45804W")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.RecordID()).To(Equal(res.Record.RecordID()))
		})

		It("adopts a durable record without touching the fetcher", func() {
			repo.insert(&fakeRecord{key: "/works/OL1W", status: ""})

			res, err := svc.Prepare(ctx, "/works/OL1W", 7, "rate")
			Expect(err).NotTo(HaveOccurred())

			Expect(res.WasImported).To(BeFalse())
			Expect(res.CanRollback).To(BeFalse())
			Expect(fetcher.calls).To(BeZero())
		})

		It("lets the original importer roll back a leftover temporary record", func() {
			repo.insert(&fakeRecord{key: "/works/OL2W", status: importer.StatusTemporary, importedBy: 7})

			res, err := svc.Prepare(ctx, "/works/OL2W", 7, "library")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.WasImported).To(BeTrue())
			Expect(res.CanRollback).To(BeTrue())
		})

		It("denies rollback of a temporary record imported by someone else", func() {
			repo.insert(&fakeRecord{key: "/works/OL2W", status: importer.StatusTemporary, importedBy: 9})

			res, err := svc.Prepare(ctx, "/works/OL2W", 7, "library")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.WasImported).To(BeTrue())
			Expect(res.CanRollback).To(BeFalse())
		})

		It("leaves no local state behind when the fetch fails", func() {
			fetcher.failWith = errors.New("connection refused")

			_, err := svc.Prepare(ctx, "/works/OL3W", 7, "rate")
			Expect(err).To(MatchError(importer.ErrExternalFetch))
			Expect(repo.byID).To(BeEmpty())
		})

		It("reports upstream not-found as a fetch failure", func() {
			fetcher.missing["/works/NOPE"] = true

			_, err := svc.Prepare(ctx, "/works/NOPE", 7, "rate")
			Expect(err).To(MatchError(importer.ErrExternalFetch))
			Expect(repo.byID).To(BeEmpty())
		})

		It("adopts the winner's record when a concurrent import races the insert", func() {
			repo.conflictOnInsert["/works/OL4W"] = &fakeRecord{
				key: "/works/OL4W", status: importer.StatusTemporary, importedBy: 9,
			}

			res, err := svc.Prepare(ctx, "/works/OL4W", 7, "rate")
			Expect(err).NotTo(HaveOccurred())

			Expect(res.WasImported).To(BeTrue())
			Expect(res.CanRollback).To(BeFalse())
			Expect(res.Record.RecordImporter()).To(Equal(int64(9)))
			Expect(repo.byID).To(HaveLen(1))
		})
	})

	Describe("Commit", func() {
		It("confirms a temporary record", func() {
			res, err := svc.Prepare(ctx, "/works/OL45804W", 7, "rate")
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Commit(ctx, res.Record.RecordID(), 7, "rate")).To(Succeed())

			stored, err := repo.FindByID(ctx, res.Record.RecordID())
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.RecordStatus()).To(Equal(importer.StatusConfirmed))
		})

		It("is a no-op on an already confirmed record", func() {
			res, _ := svc.Prepare(ctx, "/works/OL5W", 7, "rate")
			Expect(svc.Commit(ctx, res.Record.RecordID(), 7, "rate")).To(Succeed())
			Expect(svc.Commit(ctx, res.Record.RecordID(), 7, "rate")).To(Succeed())

			stored, _ := repo.FindByID(ctx, res.Record.RecordID())
			Expect(stored.RecordStatus()).To(Equal(importer.StatusConfirmed))
		})

		It("never marks a native record as imported", func() {
			native := repo.insert(&fakeRecord{key: "/works/OL6W", status: ""})

			Expect(svc.Commit(ctx, native.id, 7, "rate")).To(Succeed())
			Expect(native.status).To(Equal(importer.Status("")))
		})
	})

	Describe("Rollback", func() {
		It("deletes a record the saga imported", func() {
			res, _ := svc.Prepare(ctx, "/works/OL7W", 7, "rate")

			deleted, err := svc.Rollback(ctx, res.Record.RecordID(), true)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())
			Expect(repo.byID).To(BeEmpty())
		})

		It("never deletes when the record was not imported by this saga", func() {
			native := repo.insert(&fakeRecord{key: "/works/OL8W", status: ""})

			deleted, err := svc.Rollback(ctx, native.id, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeFalse())
			Expect(repo.byID).To(HaveLen(1))
		})

		It("never deletes a record that was confirmed in the meantime", func() {
			res, _ := svc.Prepare(ctx, "/works/OL9W", 7, "rate")
			Expect(svc.Commit(ctx, res.Record.RecordID(), 7, "rate")).To(Succeed())

			deleted, err := svc.Rollback(ctx, res.Record.RecordID(), true)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeFalse())
			Expect(repo.byID).To(HaveLen(1))
		})

		It("treats a second rollback as already done", func() {
			res, _ := svc.Prepare(ctx, "/works/OL10W", 7, "rate")

			deleted, err := svc.Rollback(ctx, res.Record.RecordID(), true)
			Expect(deleted).To(BeTrue())
			Expect(err).NotTo(HaveOccurred())

			deleted, err = svc.Rollback(ctx, res.Record.RecordID(), true)
			Expect(deleted).To(BeFalse())
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("CleanupTemporaries", func() {
		It("removes only stale temporary records and reports the count", func() {
			old := time.Now().Add(-48 * time.Hour)
			repo.insert(&fakeRecord{key: "/works/A", status: importer.StatusTemporary, createdAt: old})
			repo.insert(&fakeRecord{key: "/works/B", status: importer.StatusTemporary, createdAt: old})
			repo.insert(&fakeRecord{key: "/works/C", status: importer.StatusTemporary, createdAt: old})
			repo.insert(&fakeRecord{key: "/works/D", status: importer.StatusTemporary, createdAt: time.Now()})
			repo.insert(&fakeRecord{key: "/works/E", status: importer.StatusConfirmed, createdAt: old})

			removed, err := svc.CleanupTemporaries(ctx, 24*time.Hour)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(int64(3)))
			Expect(repo.byID).To(HaveLen(2))
		})
	})

	Describe("lifecycle events", func() {
		It("publishes confirm, rollback and cleanup events", func() {
			bus := events.NewEventBus(lg)
			received := make(chan string, 8)
			for _, eventType := range []string{
				events.EventTypeImportConfirmed,
				events.EventTypeImportRolledBack,
				events.EventTypeImportCleanedUp,
			} {
				bus.Subscribe(eventType, func(_ context.Context, event events.Event) error {
					received <- event.EventType()
					return nil
				})
			}

			svc = importer.NewService("book", repo, fetcher, bus, lg)

			res, err := svc.Prepare(ctx, "/works/OL45804W", 7, "rate")
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Commit(ctx, res.Record.RecordID(), 7, "rate")).To(Succeed())
			Eventually(received).Should(Receive(Equal(events.EventTypeImportConfirmed)))

			second, err := svc.Prepare(ctx, "/works/OL11W", 7, "rate")
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Rollback(ctx, second.Record.RecordID(), true)
			Expect(err).NotTo(HaveOccurred())
			Eventually(received).Should(Receive(Equal(events.EventTypeImportRolledBack)))

			repo.insert(&fakeRecord{
				key: "/works/OL12W", status: importer.StatusTemporary,
				createdAt: time.Now().Add(-48 * time.Hour),
			})
			removed, err := svc.CleanupTemporaries(ctx, time.Hour)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(int64(1)))
			Eventually(received).Should(Receive(Equal(events.EventTypeImportCleanedUp)))
		})
	})

	Describe("rate flow round trip", func() {
		It("imports, confirms and keeps the book for userID 7 rating an unseen work", func() {
			res, err := svc.Prepare(ctx, "/works/OL45804W", 7, "rate")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.WasImported).To(BeTrue())

			Expect(svc.Commit(ctx, res.Record.RecordID(), 7, "rate")).To(Succeed())

			stored, err := repo.FindByExternalKey(ctx, "/works/OL45804W")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.RecordStatus()).To(Equal(importer.StatusConfirmed))
			Expect(stored.RecordImporter()).To(Equal(int64(7)))

			// A later saga adopts the confirmed record without re-importing.
			again, err := svc.Prepare(ctx, "/works/OL45804W", 8, "library")
			Expect(err).NotTo(HaveOccurred())
			Expect(again.WasImported).To(BeFalse())
			Expect(again.CanRollback).To(BeFalse())
		})
	})
})
