package authz_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openshelf/openshelf/internal/audit"
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/authz"
)

func TestAuthz(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Authz Suite")
}

// stubResolver hands out a fixed grant set per user id and counts calls so
// specs can assert anonymous requests never reach it.
type stubResolver struct {
	grants    map[int64][]string
	calls     int
	shouldErr bool
}

func (r *stubResolver) Resolve(_ context.Context, userID int64) (authz.PermissionSet, error) {
	r.calls++
	if r.shouldErr {
		return authz.PermissionSet{}, errors.New("role query failed")
	}
	return authz.NewPermissionSet(r.grants[userID]), nil
}

func asUser(u *auth.User, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u != nil {
			r = r.WithContext(auth.ContextWithUser(r.Context(), u))
		}
		next.ServeHTTP(w, r)
	})
}

var _ = Describe("PermissionSet", func() {
	It("reports held and missing labels", func() {
		set := authz.NewPermissionSet([]string{authz.PermCreateBook, authz.PermUpdateBook})

		Expect(set.Has(authz.PermCreateBook)).To(BeTrue())
		Expect(set.Has(authz.PermDeleteBook)).To(BeFalse())
		Expect(set.HasAll([]string{authz.PermCreateBook, authz.PermUpdateBook})).To(BeTrue())
		Expect(set.HasAll([]string{authz.PermCreateBook, authz.PermDeleteBook})).To(BeFalse())
		Expect(set.Missing([]string{authz.PermCreateBook, authz.PermDeleteBook})).
			To(Equal([]string{authz.PermDeleteBook}))
		Expect(set.Superuser).To(BeFalse())
	})

	It("marks holders of the admin label as superusers", func() {
		set := authz.NewPermissionSet([]string{authz.PermAdmin})
		Expect(set.Superuser).To(BeTrue())
	})
})

var _ = Describe("Check", func() {
	It("allows when every required label is held", func() {
		set := authz.NewPermissionSet([]string{authz.PermCreateBook, authz.PermCreateAuthor})

		d := authz.Check(set, "books", authz.PermCreateBook)
		Expect(d.Allowed).To(BeTrue())
		Expect(d.Resource).To(Equal("books"))
	})

	It("denies with the missing labels when any required label is absent", func() {
		set := authz.NewPermissionSet([]string{authz.PermCreateBook})

		d := authz.Check(set, "books", authz.PermCreateBook, authz.PermDeleteBook)
		Expect(d.Allowed).To(BeFalse())
		Expect(d.Reason).To(Equal(authz.DenyForbidden))
		Expect(d.Missing).To(Equal([]string{authz.PermDeleteBook}))
		Expect(d.Required).To(Equal([]string{authz.PermCreateBook, authz.PermDeleteBook}))
	})

	It("lets a superuser pass without holding the label", func() {
		set := authz.NewPermissionSet([]string{authz.PermAdmin})

		d := authz.Check(set, "books", authz.PermDeleteBook)
		Expect(d.Allowed).To(BeTrue())
	})
})

var _ = Describe("Engine", func() {
	var (
		resolver *stubResolver
		sink     *audit.MemorySink
		engine   *authz.Engine
	)

	var (
		admin     = &auth.User{ID: 1, Email: "admin@openshelf.dev"}
		librarian = &auth.User{ID: 2, Email: "libby@openshelf.dev"}
		reader    = &auth.User{ID: 3, Email: "reader@openshelf.dev"}
	)

	BeforeEach(func() {
		resolver = &stubResolver{grants: map[int64][]string{
			1: {authz.PermAdmin},
			2: {authz.PermCreateBook, authz.PermUpdateBook},
			3: {},
		}}
		sink = audit.NewMemorySink()
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		engine = authz.NewEngine(resolver, sink, lg)
	})

	serve := func(h http.Handler, method, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
		return rec
	}

	Describe("RequirePermission", func() {
		var ok http.HandlerFunc

		BeforeEach(func() {
			ok = func(w http.ResponseWriter, r *http.Request) {
				set, found := authz.PermissionsFromContext(r.Context())
				Expect(found).To(BeTrue())
				Expect(set.Len()).To(BeNumerically(">=", 0))
				w.WriteHeader(http.StatusNoContent)
			}
		})

		It("rejects anonymous callers before resolving anything", func() {
			h := asUser(nil, engine.RequirePermission("books", authz.PermCreateBook)(ok))

			rec := serve(h, http.MethodPost, "/books")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(resolver.calls).To(BeZero())

			entries := sink.List()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Granted).To(BeFalse())
			Expect(entries[0].ActorID).To(BeZero())
		})

		It("admits a caller holding the required label", func() {
			h := asUser(librarian, engine.RequirePermission("books", authz.PermCreateBook)(ok))

			rec := serve(h, http.MethodPost, "/books")
			Expect(rec.Code).To(Equal(http.StatusNoContent))

			entries := sink.List()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Granted).To(BeTrue())
			Expect(entries[0].ActorEmail).To(Equal("libby@openshelf.dev"))
			Expect(entries[0].Resource).To(Equal("books"))
			Expect(entries[0].Action).To(Equal(authz.PermCreateBook))
		})

		It("denies with the decision details when a label is missing", func() {
			h := asUser(librarian, engine.RequirePermission("books", authz.PermDeleteBook)(ok))

			rec := serve(h, http.MethodDelete, "/books/1")
			Expect(rec.Code).To(Equal(http.StatusForbidden))

			var body struct {
				Error struct {
					Details authz.Decision `json:"details"`
				} `json:"error"`
			}
			Expect(json.NewDecoder(rec.Body).Decode(&body)).To(Succeed())
			Expect(body.Error.Details.Missing).To(Equal([]string{authz.PermDeleteBook}))
			Expect(body.Error.Details.Reason).To(Equal(authz.DenyForbidden))

			entries := sink.List()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Granted).To(BeFalse())
		})

		It("requires every label when several are listed", func() {
			h := asUser(librarian, engine.RequirePermission("books",
				authz.PermCreateBook, authz.PermDeleteBook)(ok))

			rec := serve(h, http.MethodPost, "/books")
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("admits an admin regardless of the label", func() {
			h := asUser(admin, engine.RequirePermission("books", authz.PermDeleteBook)(ok))

			rec := serve(h, http.MethodDelete, "/books/1")
			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})

		It("returns an internal error when resolution fails", func() {
			resolver.shouldErr = true
			h := asUser(librarian, engine.RequirePermission("books", authz.PermCreateBook)(ok))

			rec := serve(h, http.MethodPost, "/books")
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(sink.List()).To(BeEmpty())
		})
	})

	Describe("RequireAuthenticated", func() {
		It("admits any authenticated caller and attaches the grant set", func() {
			var seen authz.PermissionSet
			h := asUser(reader, engine.RequireAuthenticated("rates")(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					seen, _ = authz.PermissionsFromContext(r.Context())
					w.WriteHeader(http.StatusNoContent)
				})))

			rec := serve(h, http.MethodPost, "/rates")
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(seen.Len()).To(BeZero())
		})

		It("rejects anonymous callers", func() {
			h := asUser(nil, engine.RequireAuthenticated("rates")(http.NotFoundHandler()))

			rec := serve(h, http.MethodPost, "/rates")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("RequireOwnership", func() {
		owners := map[int64]int64{10: 3, 11: 2}
		listOf := map[int64]int64{100: 10}

		directCfg := func() authz.OwnershipConfig {
			return authz.OwnershipConfig{
				Resource: "rates",
				Owner: func(_ context.Context, id int64) (int64, bool, error) {
					owner, ok := owners[id]
					return owner, ok, nil
				},
			}
		}

		route := func(u *auth.User, cfg authz.OwnershipConfig) http.Handler {
			r := chi.NewRouter()
			r.With(engine.RequireOwnership(cfg)).Delete("/rates/{id}",
				func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				})
			return asUser(u, r)
		}

		It("admits the owner", func() {
			rec := serve(route(reader, directCfg()), http.MethodDelete, "/rates/10")
			Expect(rec.Code).To(Equal(http.StatusNoContent))

			entries := sink.List()
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal("ownership"))
			Expect(entries[0].ResourceID).To(Equal("10"))
			Expect(entries[0].Granted).To(BeTrue())
		})

		It("denies a caller who is not the owner", func() {
			rec := serve(route(reader, directCfg()), http.MethodDelete, "/rates/11")
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("lets an admin act on anyone's resource", func() {
			rec := serve(route(admin, directCfg()), http.MethodDelete, "/rates/11")
			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})

		It("answers not found for a missing resource", func() {
			rec := serve(route(reader, directCfg()), http.MethodDelete, "/rates/999")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("answers not found for a malformed id", func() {
			rec := serve(route(reader, directCfg()), http.MethodDelete, "/rates/abc")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("rejects anonymous callers", func() {
			rec := serve(route(nil, directCfg()), http.MethodDelete, "/rates/10")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("resolves ownership through a parent resource", func() {
			cfg := authz.OwnershipConfig{
				Resource: "reading-list-items",
				Parent: func(_ context.Context, id int64) (int64, bool, error) {
					list, ok := listOf[id]
					return list, ok, nil
				},
				ParentOwner: func(_ context.Context, id int64) (int64, bool, error) {
					owner, ok := owners[id]
					return owner, ok, nil
				},
			}
			r := chi.NewRouter()
			r.With(engine.RequireOwnership(cfg)).Delete("/reading-lists/items/{id}",
				func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				})

			rec := serve(asUser(reader, r), http.MethodDelete, "/reading-lists/items/100")
			Expect(rec.Code).To(Equal(http.StatusNoContent))

			rec = serve(asUser(reader, r), http.MethodDelete, "/reading-lists/items/200")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("RequireAction", func() {
		It("passes public reads straight through", func() {
			h := asUser(nil, engine.RequireAction("books", authz.ActionRead)(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusOK)
				})))

			rec := serve(h, http.MethodGet, "/books")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(resolver.calls).To(BeZero())
		})

		It("gates permission-ruled writes on the policy label", func() {
			h := asUser(reader, engine.RequireAction("books", authz.ActionCreate)(http.NotFoundHandler()))

			rec := serve(h, http.MethodPost, "/books")
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		It("treats public-ruled writes as authenticated-only", func() {
			h := asUser(reader, engine.RequireAction("rates", authz.ActionCreate)(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				})))

			rec := serve(h, http.MethodPost, "/rates")
			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})

		It("requires authentication for non-public reads", func() {
			h := asUser(nil, engine.RequireAction("libraries", authz.ActionRead)(http.NotFoundHandler()))

			rec := serve(h, http.MethodGet, "/library")
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("falls back to the admin bypass for owner rules without a lookup", func() {
			h := asUser(admin, engine.RequireAction("users", authz.ActionDelete)(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusNoContent)
				})))

			rec := serve(h, http.MethodDelete, "/users/3")
			Expect(rec.Code).To(Equal(http.StatusNoContent))

			h = asUser(reader, engine.RequireAction("users", authz.ActionDelete)(http.NotFoundHandler()))
			rec = serve(h, http.MethodDelete, "/users/3")
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})
	})
})
