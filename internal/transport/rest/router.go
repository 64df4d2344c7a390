package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/openshelf/openshelf/internal/admin"
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/author"
	"github.com/openshelf/openshelf/internal/authz"
	"github.com/openshelf/openshelf/internal/book"
	"github.com/openshelf/openshelf/internal/genre"
	"github.com/openshelf/openshelf/internal/library"
	"github.com/openshelf/openshelf/internal/notice"
	"github.com/openshelf/openshelf/internal/rate"
	"github.com/openshelf/openshelf/internal/readinglist"
	"github.com/openshelf/openshelf/internal/transport/middleware"
	"github.com/openshelf/openshelf/internal/transport/swagger"
	"github.com/openshelf/openshelf/internal/user"
)

// Handlers bundles every route handler the server mounts.
type Handlers struct {
	Auth        *auth.Handler
	User        *user.Handler
	Book        *book.Handler
	Author      *author.Handler
	Genre       *genre.Handler
	Notice      *notice.Handler
	Rate        *rate.Handler
	Library     *library.Handler
	ReadingList *readinglist.Handler
	Admin       *admin.Handler
}

// RegisterAllRoutes wires every route with its authorization gate. Write
// routes go through the policy-driven permission gates; owned resources
// add an ownership gate with the appropriate owner lookup.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, ownerDB *sqlx.DB, engine *authz.Engine, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	// Owner lookups used by the ownership gates. Reading list items have no
	// owner column; they resolve item -> list -> owner.
	rateOwner := authz.SQLOwnerLookup(ownerDB, "SELECT user_id FROM rates WHERE id = $1")
	entryOwner := authz.SQLOwnerLookup(ownerDB, "SELECT user_id FROM library_entries WHERE id = $1")
	listOwner := authz.SQLOwnerLookup(ownerDB, "SELECT user_id FROM reading_lists WHERE id = $1")
	itemParent := authz.SQLOwnerLookup(ownerDB, "SELECT list_id FROM reading_list_items WHERE id = $1")
	selfOwner := authz.SQLOwnerLookup(ownerDB, "SELECT id FROM users WHERE id = $1")

	selfOwnership := engine.RequireOwnership(authz.OwnershipConfig{Resource: "users", Owner: selfOwner})
	rateOwnership := engine.RequireOwnership(authz.OwnershipConfig{Resource: "rates", Owner: rateOwner})
	entryOwnership := engine.RequireOwnership(authz.OwnershipConfig{Resource: "libraries", Owner: entryOwner})
	listOwnership := engine.RequireOwnership(authz.OwnershipConfig{Resource: "reading-lists", Owner: listOwner})
	itemOwnership := engine.RequireOwnership(authz.OwnershipConfig{
		Resource:    "reading-lists",
		Parent:      itemParent,
		ParentOwner: listOwner,
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		// Public catalog reads.
		r.Get("/books", h.Book.ListBooks)
		r.Get("/books/{id}", h.Book.GetBook)
		r.Get("/books/{id}/rates", h.Rate.ListBookRates)
		r.Get("/authors", h.Author.ListAuthors)
		r.Get("/authors/{id}", h.Author.GetAuthor)
		r.Get("/genres", h.Genre.ListGenres)
		r.Get("/genres/{id}", h.Genre.GetGenre)
		r.Get("/notices", h.Notice.ListNotices)
		r.Get("/notices/{id}", h.Notice.GetNotice)
		r.Get("/rates/{id}", h.Rate.GetRate)

		// Everything below requires authentication.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.Me)
			pr.With(selfOwnership).Patch("/users/{id}", h.User.UpdateUser)
			pr.With(selfOwnership).Post("/users/{id}/password", h.User.ChangePassword)

			pr.With(engine.RequireAction("books", authz.ActionCreate)).Post("/books", h.Book.CreateBook)
			pr.With(engine.RequireAction("books", authz.ActionUpdate)).Patch("/books/{id}", h.Book.UpdateBook)
			pr.With(engine.RequireAction("books", authz.ActionDelete)).Delete("/books/{id}", h.Book.DeleteBook)

			pr.With(engine.RequireAction("authors", authz.ActionCreate)).Post("/authors", h.Author.CreateAuthor)
			pr.With(engine.RequireAction("authors", authz.ActionCreate)).Post("/authors/import", h.Author.ImportAuthor)
			pr.With(engine.RequireAction("authors", authz.ActionUpdate)).Patch("/authors/{id}", h.Author.UpdateAuthor)
			pr.With(engine.RequireAction("authors", authz.ActionDelete)).Delete("/authors/{id}", h.Author.DeleteAuthor)

			pr.With(engine.RequireAction("genres", authz.ActionCreate)).Post("/genres", h.Genre.CreateGenre)
			pr.With(engine.RequireAction("genres", authz.ActionUpdate)).Patch("/genres/{id}", h.Genre.UpdateGenre)
			pr.With(engine.RequireAction("genres", authz.ActionDelete)).Delete("/genres/{id}", h.Genre.DeleteGenre)

			pr.With(engine.RequireAction("notices", authz.ActionCreate)).Post("/notices", h.Notice.CreateNotice)
			pr.With(engine.RequireAction("notices", authz.ActionUpdate)).Patch("/notices/{id}", h.Notice.UpdateNotice)
			pr.With(engine.RequireAction("notices", authz.ActionDelete)).Delete("/notices/{id}", h.Notice.DeleteNotice)

			pr.With(engine.RequireAction("rates", authz.ActionCreate)).Post("/rates", h.Rate.CreateRate)
			pr.Get("/rates/me", h.Rate.ListMyRates)
			pr.With(rateOwnership).Patch("/rates/{id}", h.Rate.UpdateRate)
			pr.With(rateOwnership).Delete("/rates/{id}", h.Rate.DeleteRate)

			pr.With(engine.RequireAction("libraries", authz.ActionCreate)).Post("/library", h.Library.AddEntry)
			pr.Get("/library", h.Library.ListMyLibrary)
			pr.With(entryOwnership).Patch("/library/{id}", h.Library.MoveEntry)
			pr.With(entryOwnership).Delete("/library/{id}", h.Library.RemoveEntry)

			pr.With(engine.RequireAction("reading-lists", authz.ActionCreate)).Post("/reading-lists", h.ReadingList.CreateList)
			pr.Get("/reading-lists", h.ReadingList.ListMyLists)
			pr.With(listOwnership).Get("/reading-lists/{id}", h.ReadingList.GetList)
			pr.With(listOwnership).Patch("/reading-lists/{id}", h.ReadingList.UpdateList)
			pr.With(listOwnership).Delete("/reading-lists/{id}", h.ReadingList.DeleteList)
			pr.With(listOwnership).Post("/reading-lists/{id}/items", h.ReadingList.AddItem)
			pr.With(itemOwnership).Delete("/reading-lists/items/{id}", h.ReadingList.RemoveItem)

			pr.Route("/admin", func(adr chi.Router) {
				adr.Use(engine.RequirePermission("admin", authz.PermAdmin))
				adr.Get("/audit-logs", h.Admin.ListAuditLogs)
				adr.Post("/imports/cleanup", h.Admin.TriggerCleanup)
			})
		})
	})
}
