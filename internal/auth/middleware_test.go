package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/auth"
	"github.com/frahmantamala/todolist/internal/session"
	"github.com/frahmantamala/todolist/internal/user"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

// fakeAccounts implements auth.AccountService over an in-memory map.
type fakeAccounts struct {
	users      map[int64]*user.User
	passwords  map[string]string
	pings      int
	shouldFail bool
	confirmed  map[int64]bool
}

func newFakeAccounts(users ...*user.User) *fakeAccounts {
	f := &fakeAccounts{
		users:     map[int64]*user.User{},
		passwords: map[string]string{},
		confirmed: map[int64]bool{},
	}
	for _, u := range users {
		f.users[u.ID] = u
		f.passwords[u.Email] = "correct horse"
	}
	return f
}

func (f *fakeAccounts) GetByID(ctx context.Context, id int64) (*user.User, error) {
	if f.shouldFail {
		return nil, errors.New("database unavailable")
	}
	u, ok := f.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeAccounts) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	for _, u := range f.users {
		if u.Email == email && f.passwords[email] == password {
			return u, nil
		}
	}
	return nil, internal.ErrInvalidCredentials
}

func (f *fakeAccounts) Ping(ctx context.Context, u *user.User) error {
	f.pings++
	return nil
}

func (f *fakeAccounts) Register(ctx context.Context, dto user.RegisterDTO) (*user.User, string, error) {
	u := &user.User{ID: int64(len(f.users) + 1), Email: dto.Email, Username: dto.Username}
	f.users[u.ID] = u
	f.passwords[u.Email] = dto.Password
	return u, "confirmation-token", nil
}

func (f *fakeAccounts) Confirm(ctx context.Context, u *user.User, token string) (bool, error) {
	if token != "good" {
		return false, nil
	}
	u.MarkConfirmed()
	f.confirmed[u.ID] = true
	return true, nil
}

func (f *fakeAccounts) ResendConfirmation(ctx context.Context, u *user.User) (string, error) {
	return "resent", nil
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := auth.UserFromContext(r.Context())
		gomega.Expect(ok).To(gomega.BeTrue())
		w.Header().Set("X-User", u.Username)
		if auth.TokenUsedFromContext(r.Context()) {
			w.Header().Set("X-Token-Used", "true")
		}
		gomega.Expect(internal.UserIDFromContext(r.Context())).To(gomega.Equal(u.ID))
		w.WriteHeader(http.StatusOK)
	})
}

func errorCode(w *httptest.ResponseRecorder) string {
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
	return resp.Error.Code
}

var _ = ginkgo.Describe("Authenticator", func() {
	var (
		accounts      *fakeAccounts
		tokens        *auth.JWTTokenService
		store         *session.RedisStore
		mr            *miniredis.Miniredis
		authenticator *auth.Authenticator
		alice         *user.User
		bob           *user.User
	)

	ginkgo.BeforeEach(func() {
		var err error
		alice = newTestUser(1, userRole)
		alice.Email, alice.Username = "alice@example.com", "alice"
		bob = newTestUser(2, userRole)
		bob.Email, bob.Username, bob.Confirmed = "bob@example.com", "bob", false

		accounts = newFakeAccounts(alice, bob)
		tokens, err = auth.NewJWTTokenService(testSecret)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		mr, err = miniredis.Run()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		ginkgo.DeferCleanup(func() {
			_ = rdb.Close()
			mr.Close()
		})
		store = session.NewRedisStore(rdb, "test:session", time.Hour)

		authenticator = auth.NewAuthenticator(accounts, tokens, store)
	})

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		authenticator.Middleware(echoUser()).ServeHTTP(w, req)
		return w
	}

	ginkgo.It("should reject a request without credentials", func() {
		w := serve(httptest.NewRequest(http.MethodGet, "/", nil))
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(errorCode(w)).To(gomega.Equal(string(internal.ErrCodeUnauthenticated)))
	})

	ginkgo.It("should accept a bearer auth token and flag token use", func() {
		token, err := tokens.IssueAuth(alice.ID, time.Hour)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := serve(req)

		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(w.Header().Get("X-User")).To(gomega.Equal("alice"))
		gomega.Expect(w.Header().Get("X-Token-Used")).To(gomega.Equal("true"))
		gomega.Expect(accounts.pings).To(gomega.Equal(1))
	})

	ginkgo.It("should reject a confirmation token used as a bearer token", func() {
		token, err := tokens.IssueConfirmation(alice.ID, time.Hour)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := serve(req)

		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(errorCode(w)).To(gomega.Equal(string(internal.ErrCodeInvalidToken)))
	})

	ginkgo.It("should reject a token for a deleted user", func() {
		token, err := tokens.IssueAuth(99, time.Hour)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		gomega.Expect(serve(req).Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("should accept basic email and password", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetBasicAuth("alice@example.com", "correct horse")
		w := serve(req)

		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(w.Header().Get("X-Token-Used")).To(gomega.BeEmpty())
	})

	ginkgo.It("should accept a token in the basic username", func() {
		token, err := tokens.IssueAuth(alice.ID, time.Hour)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetBasicAuth(token, "")
		w := serve(req)

		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(w.Header().Get("X-Token-Used")).To(gomega.Equal("true"))
	})

	ginkgo.It("should reject a wrong password", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.SetBasicAuth("alice@example.com", "wrong")
		w := serve(req)

		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(errorCode(w)).To(gomega.Equal(string(internal.ErrCodeInvalidCredentials)))
	})

	ginkgo.It("should resolve a session cookie", func() {
		sess, err := store.Create(context.Background(), alice.ID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sess.ID})
		w := serve(req)

		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(w.Header().Get("X-User")).To(gomega.Equal("alice"))
	})

	ginkgo.It("should reject an unknown session cookie", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "missing"})
		gomega.Expect(serve(req).Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("should report storage failures as internal errors", func() {
		accounts.shouldFail = true
		token, err := tokens.IssueAuth(alice.ID, time.Hour)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := serve(req)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusInternalServerError))
		gomega.Expect(w.Body.String()).NotTo(gomega.ContainSubstring("database unavailable"))
	})

	ginkgo.Describe("RequireConfirmed", func() {
		ginkgo.It("should refuse unconfirmed accounts", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetBasicAuth("bob@example.com", "correct horse")
			w := httptest.NewRecorder()
			authenticator.Middleware(authenticator.RequireConfirmed(echoUser())).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(errorCode(w)).To(gomega.Equal(string(internal.ErrCodeUnconfirmedAccount)))
		})

		ginkgo.It("should let confirmed accounts through", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetBasicAuth("alice@example.com", "correct horse")
			w := httptest.NewRecorder()
			authenticator.Middleware(authenticator.RequireConfirmed(echoUser())).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
		})
	})

	ginkgo.Describe("Handler", func() {
		var handler *auth.Handler

		ginkgo.BeforeEach(func() {
			handler = auth.NewHandler(accounts, tokens, store, time.Hour, time.Hour)
		})

		ginkgo.It("should issue an auth token for a password login", func() {
			req := httptest.NewRequest(http.MethodPost, "/tokens", nil)
			req.SetBasicAuth("alice@example.com", "correct horse")
			w := httptest.NewRecorder()
			authenticator.Middleware(http.HandlerFunc(handler.IssueToken)).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
			var resp auth.TokenResponse
			gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
			gomega.Expect(resp.Expiration).To(gomega.Equal(int64(3600)))

			id, ok := tokens.VerifyAuth(resp.Token)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(id).To(gomega.Equal(alice.ID))
		})

		ginkgo.It("should refuse to trade a token for a new one", func() {
			token, err := tokens.IssueAuth(alice.ID, time.Hour)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			req := httptest.NewRequest(http.MethodPost, "/tokens", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			authenticator.Middleware(http.HandlerFunc(handler.IssueToken)).ServeHTTP(w, req)

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(errorCode(w)).To(gomega.Equal(string(internal.ErrCodeInvalidCredentials)))
		})

		ginkgo.It("should start and end a cookie session", func() {
			body := strings.NewReader(`{"email":"alice@example.com","password":"correct horse"}`)
			w := httptest.NewRecorder()
			handler.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", body))
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))

			cookies := w.Result().Cookies()
			gomega.Expect(cookies).To(gomega.HaveLen(1))
			gomega.Expect(cookies[0].Name).To(gomega.Equal(session.CookieName))
			gomega.Expect(cookies[0].HttpOnly).To(gomega.BeTrue())

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(cookies[0])
			gomega.Expect(serve(req).Code).To(gomega.Equal(http.StatusOK))

			logout := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
			logout.AddCookie(cookies[0])
			w = httptest.NewRecorder()
			handler.Logout(w, logout)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusNoContent))

			req = httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(cookies[0])
			gomega.Expect(serve(req).Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("should reject a login with missing fields", func() {
			w := httptest.NewRecorder()
			handler.Login(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":""}`)))
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("should register an account", func() {
			body := strings.NewReader(`{"email":"carol@example.com","username":"carol","password":"correct horse"}`)
			w := httptest.NewRecorder()
			handler.Register(w, httptest.NewRequest(http.MethodPost, "/auth/register", body))

			gomega.Expect(w.Code).To(gomega.Equal(http.StatusCreated))
			gomega.Expect(w.Header().Get("Location")).To(gomega.HavePrefix("/api/v1/users/"))
			gomega.Expect(w.Body.String()).NotTo(gomega.ContainSubstring("correct horse"))
		})

		ginkgo.It("should confirm only with a valid token", func() {
			confirm := func(token string) *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodGet, "/auth/confirm/"+token, nil)
				req = req.WithContext(user.WithContext(req.Context(), bob))
				w := httptest.NewRecorder()
				handler.Confirm(w, withURLParam(req, "token", token))
				return w
			}

			gomega.Expect(confirm("bad").Code).To(gomega.Equal(http.StatusBadRequest))
			gomega.Expect(bob.Confirmed).To(gomega.BeFalse())

			gomega.Expect(confirm("good").Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(bob.Confirmed).To(gomega.BeTrue())
		})

		ginkgo.It("should resend confirmation for unconfirmed accounts", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/confirm", nil)
			req = req.WithContext(user.WithContext(req.Context(), bob))
			w := httptest.NewRecorder()
			handler.ResendConfirmation(w, req)
			gomega.Expect(w.Code).To(gomega.Equal(http.StatusAccepted))
		})
	})
})
