package postgres_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/openshelf/openshelf/internal/book"
	bookPostgres "github.com/openshelf/openshelf/internal/book/postgres"
	"github.com/openshelf/openshelf/internal/importer"
)

func TestBookPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Book Postgres Suite")
}

func strPtr(v string) *string { return &v }

var _ = Describe("Book Repository", func() {
	var (
		db   *gorm.DB
		repo *bookPostgres.BookRepository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(db.AutoMigrate(&book.Book{})).To(Succeed())

		repo = bookPostgres.NewBookRepository(db)
		ctx = context.Background()
	})

	Describe("Create and GetByID", func() {
		It("stores and reads back a book", func() {
			b := &book.Book{Title: "The Hobbit", AuthorNames: "J.R.R. Tolkien"}
			Expect(repo.Create(ctx, b)).To(Succeed())
			Expect(b.ID).NotTo(BeZero())

			got, err := repo.GetByID(ctx, b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("The Hobbit"))
			Expect(got.ImportStatus).To(BeEmpty())
		})

		It("returns the sentinel for an unknown id", func() {
			_, err := repo.GetByID(ctx, 12345)
			Expect(err).To(MatchError(book.ErrBookNotFound))
		})
	})

	Describe("GetAll", func() {
		It("pages through books in title order", func() {
			for _, title := range []string{"Emma", "Dune", "Carrie"} {
				Expect(repo.Create(ctx, &book.Book{Title: title})).To(Succeed())
			}

			books, err := repo.GetAll(ctx, 2, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(books).To(HaveLen(2))
			Expect(books[0].Title).To(Equal("Carrie"))
			Expect(books[1].Title).To(Equal("Dune"))

			books, err = repo.GetAll(ctx, 2, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(books).To(HaveLen(1))
			Expect(books[0].Title).To(Equal("Emma"))
		})
	})

	Describe("Update", func() {
		It("persists changed fields", func() {
			b := &book.Book{Title: "Draft"}
			Expect(repo.Create(ctx, b)).To(Succeed())

			b.Title = "Final"
			b.Description = "second edition"
			Expect(repo.Update(ctx, b)).To(Succeed())

			got, err := repo.GetByID(ctx, b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Final"))
			Expect(got.Description).To(Equal("second edition"))
		})
	})

	Describe("FindByExternalKey", func() {
		It("resolves a book by its OpenLibrary key", func() {
			b := &book.Book{Title: "Fantastic Mr Fox", OpenLibraryKey: strPtr("/works/OL45804W")}
			Expect(repo.Create(ctx, b)).To(Succeed())

			rec, err := repo.FindByExternalKey(ctx, "/works/OL45804W")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.RecordID()).To(Equal(b.ID))
		})

		It("returns the importer sentinel for an unseen key", func() {
			_, err := repo.FindByExternalKey(ctx, "/works/OL0W")
			Expect(err).To(MatchError(importer.ErrNotFound))
		})
	})

	Describe("CreateTemporary", func() {
		It("stamps the import lifecycle columns", func() {
			b := &book.Book{Title: "Imported", OpenLibraryKey: strPtr("/works/OL45804W")}
			Expect(repo.CreateTemporary(ctx, b, 7, "rate")).To(Succeed())

			got, err := repo.GetByID(ctx, b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ImportStatus).To(Equal(string(importer.StatusTemporary)))
			Expect(got.ImportedBy).To(HaveValue(Equal(int64(7))))
			Expect(got.ImportedReason).To(HaveValue(Equal("rate")))
			Expect(got.IsTemporary()).To(BeTrue())
		})

		It("reports a duplicate key as a conflict", func() {
			first := &book.Book{Title: "First", OpenLibraryKey: strPtr("/works/OL45804W")}
			Expect(repo.CreateTemporary(ctx, first, 7, "rate")).To(Succeed())

			second := &book.Book{Title: "Second", OpenLibraryKey: strPtr("/works/OL45804W")}
			err := repo.CreateTemporary(ctx, second, 9, "library")
			Expect(err).To(MatchError(importer.ErrConflict))
		})
	})

	Describe("Confirm", func() {
		It("promotes a temporary book and records the reason", func() {
			b := &book.Book{Title: "Imported", OpenLibraryKey: strPtr("/works/OL45804W")}
			Expect(repo.CreateTemporary(ctx, b, 7, "rate")).To(Succeed())

			Expect(repo.Confirm(ctx, b.ID, "rate")).To(Succeed())

			got, err := repo.GetByID(ctx, b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ImportStatus).To(Equal(string(importer.StatusConfirmed)))
			Expect(got.IsTemporary()).To(BeFalse())
		})
	})

	Describe("Delete", func() {
		It("reports whether a row was removed", func() {
			b := &book.Book{Title: "Doomed"}
			Expect(repo.Create(ctx, b)).To(Succeed())

			deleted, err := repo.Delete(ctx, b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())

			deleted, err = repo.Delete(ctx, b.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeFalse())
		})
	})

	Describe("DeleteTemporariesBefore", func() {
		It("sweeps only stale temporary rows", func() {
			stale := &book.Book{Title: "Stale", OpenLibraryKey: strPtr("/works/OL1W")}
			Expect(repo.CreateTemporary(ctx, stale, 7, "rate")).To(Succeed())
			Expect(db.Model(&book.Book{}).Where("id = ?", stale.ID).
				Update("created_at", time.Now().Add(-48*time.Hour)).Error).To(Succeed())

			fresh := &book.Book{Title: "Fresh", OpenLibraryKey: strPtr("/works/OL2W")}
			Expect(repo.CreateTemporary(ctx, fresh, 7, "rate")).To(Succeed())

			confirmed := &book.Book{Title: "Confirmed", OpenLibraryKey: strPtr("/works/OL3W")}
			Expect(repo.CreateTemporary(ctx, confirmed, 7, "rate")).To(Succeed())
			Expect(repo.Confirm(ctx, confirmed.ID, "rate")).To(Succeed())
			Expect(db.Model(&book.Book{}).Where("id = ?", confirmed.ID).
				Update("created_at", time.Now().Add(-48*time.Hour)).Error).To(Succeed())

			native := &book.Book{Title: "Native"}
			Expect(repo.Create(ctx, native)).To(Succeed())

			removed, err := repo.DeleteTemporariesBefore(ctx, time.Now().Add(-24*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(int64(1)))

			_, err = repo.GetByID(ctx, stale.ID)
			Expect(err).To(MatchError(book.ErrBookNotFound))

			for _, id := range []int64{fresh.ID, confirmed.ID, native.ID} {
				_, err := repo.GetByID(ctx, id)
				Expect(err).NotTo(HaveOccurred())
			}
		})
	})
})
