package auth_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openshelf/openshelf/internal/auth"
)

func TestAuthService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Service Suite")
}

type storedCredential struct {
	hash string
	id   int64
}

type mockUserRepo struct {
	users      map[string]storedCredential
	byID       map[int64]*auth.User
	shouldFail bool
	failError  error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users: make(map[string]storedCredential),
		byID:  make(map[int64]*auth.User),
	}
}

func (m *mockUserRepo) addUser(id int64, email, password string) {
	hash, err := auth.HashPassword(password, 4)
	Expect(err).NotTo(HaveOccurred())
	m.users[email] = storedCredential{hash: hash, id: id}
	m.byID[id] = &auth.User{ID: id, Email: email}
}

func (m *mockUserRepo) GetPasswordForEmail(email string) (string, int64, error) {
	if m.shouldFail {
		return "", 0, m.failError
	}
	u, ok := m.users[email]
	if !ok {
		return "", 0, auth.ErrUserNotFound
	}
	return u.hash, u.id, nil
}

func (m *mockUserRepo) GetUserByID(userID int64) (*auth.User, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	u, ok := m.byID[userID]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return u, nil
}

var _ = Describe("Auth Service", func() {
	var (
		repo     *mockUserRepo
		tokenGen *auth.JWTTokenGenerator
		svc      *auth.Service
	)

	BeforeEach(func() {
		repo = newMockUserRepo()
		repo.addUser(7, "reader@openshelf.dev", "correct-horse")
		tokenGen = auth.NewJWTTokenGenerator(
			"test-access-secret-0123456789abcdef",
			"test-refresh-secret-0123456789abcdef",
			15*time.Minute,
			7*24*time.Hour,
		)
		svc = auth.NewService(repo, tokenGen, 4)
	})

	Describe("Authenticate", func() {
		It("issues both tokens for valid credentials", func() {
			tokens, err := svc.Authenticate(auth.LoginDTO{
				Email: "reader@openshelf.dev", Password: "correct-horse",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.AccessToken).NotTo(BeEmpty())
			Expect(tokens.RefreshToken).NotTo(BeEmpty())

			claims, err := svc.ValidateAccessToken(tokens.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal(int64(7)))
			Expect(claims.Email).To(Equal("reader@openshelf.dev"))
		})

		It("rejects a wrong password", func() {
			_, err := svc.Authenticate(auth.LoginDTO{
				Email: "reader@openshelf.dev", Password: "wrong",
			})
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})

		It("rejects an unknown email with the same error as a wrong password", func() {
			_, err := svc.Authenticate(auth.LoginDTO{
				Email: "nobody@openshelf.dev", Password: "correct-horse",
			})
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})

		It("rejects missing credentials before hitting the repository", func() {
			repo.shouldFail = true
			repo.failError = errors.New("should not be called")

			_, err := svc.Authenticate(auth.LoginDTO{Email: "", Password: ""})
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, repo.failError)).To(BeFalse())
		})
	})

	Describe("RefreshTokens", func() {
		It("rotates both tokens from a valid refresh token", func() {
			tokens, err := svc.Authenticate(auth.LoginDTO{
				Email: "reader@openshelf.dev", Password: "correct-horse",
			})
			Expect(err).NotTo(HaveOccurred())

			renewed, err := svc.RefreshTokens(tokens.RefreshToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(renewed.AccessToken).NotTo(BeEmpty())
			Expect(renewed.RefreshToken).NotTo(BeEmpty())

			claims, err := svc.ValidateAccessToken(renewed.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal(int64(7)))
		})

		It("rejects garbage tokens", func() {
			_, err := svc.RefreshTokens("not-a-token")
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})

		It("rejects an expired token", func() {
			expiredGen := auth.NewJWTTokenGenerator(
				"test-access-secret-0123456789abcdef",
				"test-refresh-secret-0123456789abcdef",
				15*time.Minute,
				7*24*time.Hour,
			)
			expiredGen.RefreshTokenTTL = -time.Minute

			token, err := expiredGen.GenerateRefreshToken(7, "reader@openshelf.dev")
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.RefreshTokens(token)
			Expect(err).To(MatchError(auth.ErrTokenExpired))
		})

		It("rejects a token signed with a different secret", func() {
			otherGen := auth.NewJWTTokenGenerator(
				"other-access-secret-0123456789abcdef",
				"other-refresh-secret-0123456789abcdef",
				15*time.Minute,
				7*24*time.Hour,
			)
			token, err := otherGen.GenerateRefreshToken(7, "reader@openshelf.dev")
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.RefreshTokens(token)
			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})
	})

	Describe("GetUser", func() {
		It("loads the caller identity", func() {
			u, err := svc.GetUser(7)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Email).To(Equal("reader@openshelf.dev"))
		})

		It("propagates not found", func() {
			_, err := svc.GetUser(99)
			Expect(err).To(MatchError(auth.ErrUserNotFound))
		})
	})
})
