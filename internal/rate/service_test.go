package rate_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openshelf/openshelf/internal"
	"github.com/openshelf/openshelf/internal/importer"
	"github.com/openshelf/openshelf/internal/rate"
)

func TestRateService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rate Service Suite")
}

type fakeBook struct {
	id         int64
	key        string
	status     importer.Status
	importedBy int64
}

func (b *fakeBook) RecordID() int64               { return b.id }
func (b *fakeBook) RecordStatus() importer.Status { return b.status }
func (b *fakeBook) RecordImporter() int64         { return b.importedBy }

// fakeBookRepo backs both the importer saga and the BookResolver the rate
// service uses for the local-id path.
type fakeBookRepo struct {
	nextID int64
	books  map[int64]*fakeBook
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: make(map[int64]*fakeBook)}
}

func (f *fakeBookRepo) add(b *fakeBook) *fakeBook {
	f.nextID++
	b.id = f.nextID
	f.books[b.id] = b
	return b
}

func (f *fakeBookRepo) FindByExternalKey(_ context.Context, key string) (importer.Record, error) {
	for _, b := range f.books {
		if b.key == key {
			return b, nil
		}
	}
	return nil, importer.ErrNotFound
}

func (f *fakeBookRepo) FindByID(_ context.Context, id int64) (importer.Record, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, importer.ErrNotFound
	}
	return b, nil
}

func (f *fakeBookRepo) CreateTemporary(_ context.Context, rec importer.Record, userID int64, _ string) error {
	b := rec.(*fakeBook)
	b.status = importer.StatusTemporary
	b.importedBy = userID
	f.add(b)
	return nil
}

func (f *fakeBookRepo) Confirm(_ context.Context, id int64, _ string) error {
	b, ok := f.books[id]
	if !ok {
		return importer.ErrNotFound
	}
	b.status = importer.StatusConfirmed
	return nil
}

func (f *fakeBookRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := f.books[id]; !ok {
		return false, nil
	}
	delete(f.books, id)
	return true, nil
}

func (f *fakeBookRepo) DeleteTemporariesBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeBookFetcher struct {
	calls    int
	failWith error
}

func (f *fakeBookFetcher) Fetch(_ context.Context, key string) (importer.Record, error) {
	f.calls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &fakeBook{key: key}, nil
}

type mockRateRepo struct {
	nextID     int64
	rates      map[int64]*rate.Rate
	shouldFail bool
	failError  error
}

func newMockRateRepo() *mockRateRepo {
	return &mockRateRepo{rates: make(map[int64]*rate.Rate)}
}

func (m *mockRateRepo) GetByID(_ context.Context, id int64) (*rate.Rate, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	rt, ok := m.rates[id]
	if !ok {
		return nil, rate.ErrRateNotFound
	}
	return rt, nil
}

func (m *mockRateRepo) GetForBook(_ context.Context, bookID int64, _, _ int) ([]*rate.Rate, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var out []*rate.Rate
	for _, rt := range m.rates {
		if rt.BookID == bookID {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (m *mockRateRepo) GetForUser(_ context.Context, userID int64, _, _ int) ([]*rate.Rate, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var out []*rate.Rate
	for _, rt := range m.rates {
		if rt.UserID == userID {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (m *mockRateRepo) Create(_ context.Context, rt *rate.Rate) error {
	if m.shouldFail {
		return m.failError
	}
	for _, existing := range m.rates {
		if existing.BookID == rt.BookID && existing.UserID == rt.UserID {
			return rate.ErrAlreadyRated
		}
	}
	m.nextID++
	rt.ID = m.nextID
	m.rates[rt.ID] = rt
	return nil
}

func (m *mockRateRepo) Update(_ context.Context, rt *rate.Rate) error {
	if m.shouldFail {
		return m.failError
	}
	m.rates[rt.ID] = rt
	return nil
}

func (m *mockRateRepo) DeleteByID(_ context.Context, id int64) error {
	if m.shouldFail {
		return m.failError
	}
	delete(m.rates, id)
	return nil
}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

var _ = Describe("Rate Service", func() {
	var (
		repo     *mockRateRepo
		bookRepo *fakeBookRepo
		fetcher  *fakeBookFetcher
		svc      *rate.Service
		ctx      context.Context
	)

	BeforeEach(func() {
		repo = newMockRateRepo()
		bookRepo = newFakeBookRepo()
		fetcher = &fakeBookFetcher{}
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		imports := importer.NewService("book", bookRepo, fetcher, nil, lg)
		svc = rate.NewService(repo, bookRepo, imports)
		ctx = context.Background()
	})

	Describe("CreateRate", func() {
		It("rejects a score outside 1 to 5", func() {
			_, err := svc.CreateRate(ctx, rate.CreateRateDTO{BookID: int64Ptr(1), Score: 6}, 7)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a request naming both a book id and an external key", func() {
			dto := rate.CreateRateDTO{
				BookID:         int64Ptr(1),
				OpenLibraryKey: strPtr("/works/OL45804W"),
				Score:          4,
			}

			_, err := svc.CreateRate(ctx, dto, 7)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("rejects a request naming neither", func() {
			_, err := svc.CreateRate(ctx, rate.CreateRateDTO{Score: 4}, 7)
			_, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
		})

		It("rates an existing book by local id without touching the importer", func() {
			book := bookRepo.add(&fakeBook{key: "/works/OL1W"})

			rt, err := svc.CreateRate(ctx, rate.CreateRateDTO{
				BookID: int64Ptr(book.id), Score: 5, Review: "superb",
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			Expect(rt.BookID).To(Equal(book.id))
			Expect(rt.UserID).To(Equal(int64(7)))
			Expect(rt.Score).To(Equal(5))
			Expect(fetcher.calls).To(BeZero())
		})

		It("answers not found for an unknown book id", func() {
			_, err := svc.CreateRate(ctx, rate.CreateRateDTO{BookID: int64Ptr(99), Score: 3}, 7)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("imports and confirms a book addressed by external key", func() {
			rt, err := svc.CreateRate(ctx, rate.CreateRateDTO{
				OpenLibraryKey: strPtr("/works/OL45804W"), Score: 4,
			}, 7)
			Expect(err).NotTo(HaveOccurred())

			book := bookRepo.books[rt.BookID]
			Expect(book).NotTo(BeNil())
			Expect(book.status).To(Equal(importer.StatusConfirmed))
			Expect(book.importedBy).To(Equal(int64(7)))
		})

		It("surfaces an external error when the catalog fetch fails", func() {
			fetcher.failWith = errors.New("502 from upstream")

			_, err := svc.CreateRate(ctx, rate.CreateRateDTO{
				OpenLibraryKey: strPtr("/works/OL45804W"), Score: 4,
			}, 7)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusBadGateway))
			Expect(bookRepo.books).To(BeEmpty())
		})

		It("rolls back a speculative import when the rate insert fails", func() {
			repo.shouldFail = true
			repo.failError = errors.New("insert failed")

			_, err := svc.CreateRate(ctx, rate.CreateRateDTO{
				OpenLibraryKey: strPtr("/works/OL45804W"), Score: 4,
			}, 7)
			Expect(err).To(HaveOccurred())
			Expect(bookRepo.books).To(BeEmpty())
		})

		It("keeps a book another user imported when the rate insert fails", func() {
			bookRepo.add(&fakeBook{
				key: "/works/OL45804W", status: importer.StatusTemporary, importedBy: 9,
			})
			repo.shouldFail = true
			repo.failError = errors.New("insert failed")

			_, err := svc.CreateRate(ctx, rate.CreateRateDTO{
				OpenLibraryKey: strPtr("/works/OL45804W"), Score: 4,
			}, 7)
			Expect(err).To(HaveOccurred())
			Expect(bookRepo.books).To(HaveLen(1))
		})

		It("answers conflict for a duplicate rate and keeps the durable book", func() {
			book := bookRepo.add(&fakeBook{key: "/works/OL1W"})
			_, err := svc.CreateRate(ctx, rate.CreateRateDTO{BookID: int64Ptr(book.id), Score: 4}, 7)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.CreateRate(ctx, rate.CreateRateDTO{BookID: int64Ptr(book.id), Score: 2}, 7)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusConflict))
			Expect(bookRepo.books).To(HaveLen(1))
		})

		It("adopts an already-confirmed import instead of re-importing", func() {
			bookRepo.add(&fakeBook{key: "/works/OL45804W", status: importer.StatusConfirmed, importedBy: 9})

			rt, err := svc.CreateRate(ctx, rate.CreateRateDTO{
				OpenLibraryKey: strPtr("/works/OL45804W"), Score: 4,
			}, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetcher.calls).To(BeZero())
			Expect(bookRepo.books[rt.BookID].importedBy).To(Equal(int64(9)))
		})
	})

	Describe("GetRate", func() {
		It("returns a stored rate", func() {
			repo.rates[1] = &rate.Rate{ID: 1, BookID: 2, UserID: 7, Score: 3}

			rt, err := svc.GetRate(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(rt.Score).To(Equal(3))
		})

		It("answers not found for an unknown id", func() {
			_, err := svc.GetRate(ctx, 42)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("UpdateRate", func() {
		It("applies partial updates", func() {
			repo.rates[1] = &rate.Rate{ID: 1, BookID: 2, UserID: 7, Score: 3, Review: "fine"}

			rt, err := svc.UpdateRate(ctx, 1, rate.UpdateRateDTO{Score: intPtr(5)})
			Expect(err).NotTo(HaveOccurred())
			Expect(rt.Score).To(Equal(5))
			Expect(rt.Review).To(Equal("fine"))
		})

		It("rejects an out-of-range score", func() {
			repo.rates[1] = &rate.Rate{ID: 1, Score: 3}

			_, err := svc.UpdateRate(ctx, 1, rate.UpdateRateDTO{Score: intPtr(0)})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("DeleteRate", func() {
		It("removes a stored rate", func() {
			repo.rates[1] = &rate.Rate{ID: 1}

			Expect(svc.DeleteRate(ctx, 1)).To(Succeed())
			Expect(repo.rates).To(BeEmpty())
		})

		It("answers not found for an unknown id", func() {
			err := svc.DeleteRate(ctx, 42)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(http.StatusNotFound))
		})
	})
})

func intPtr(v int) *int { return &v }
