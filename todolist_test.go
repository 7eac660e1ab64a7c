package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/todolist/internal/auth"
	roleDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/role"
	todoDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/todo"
	userDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/user"
	"github.com/frahmantamala/todolist/internal/core/events"
	"github.com/frahmantamala/todolist/internal/credential"
	"github.com/frahmantamala/todolist/internal/notification"
	"github.com/frahmantamala/todolist/internal/role"
	rolePostgres "github.com/frahmantamala/todolist/internal/role/postgres"
	"github.com/frahmantamala/todolist/internal/session"
	"github.com/frahmantamala/todolist/internal/todo"
	todoPostgres "github.com/frahmantamala/todolist/internal/todo/postgres"
	"github.com/frahmantamala/todolist/internal/transport"
	"github.com/frahmantamala/todolist/internal/transport/rest"
	"github.com/frahmantamala/todolist/internal/transport/swagger"
	"github.com/frahmantamala/todolist/internal/user"
	userPostgres "github.com/frahmantamala/todolist/internal/user/postgres"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	secret     = "an-end-to-end-secret-long-enough-for-hs256"
	adminEmail = "boss@example.com"
	password   = "correct horse"
)

type outbox struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (o *outbox) Send(ctx context.Context, msg notification.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

// tokenFor returns the confirmation token from the last message sent to email.
func (o *outbox) tokenFor(email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.msgs) - 1; i >= 0; i-- {
		if o.msgs[i].To != email {
			continue
		}
		_, after, found := strings.Cut(o.msgs[i].Body, "/api/v1/auth/confirm/")
		if found {
			return strings.TrimSpace(after)
		}
	}
	return ""
}

type credentials func(r *http.Request)

func basic(email string) credentials {
	return func(r *http.Request) { r.SetBasicAuth(email, password) }
}

func bearer(token string) credentials {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func cookie(c *http.Cookie) credentials {
	return func(r *http.Request) { r.AddCookie(c) }
}

var _ = Describe("Todolist API", func() {
	var (
		router *chi.Mux
		bus    *events.EventBus
		mail   *outbox
	)

	do := func(method, path string, body any, creds credentials) *httptest.ResponseRecorder {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(raw)
		}
		req := httptest.NewRequest(method, path, reader)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if creds != nil {
			creds(req)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	decode := func(rr *httptest.ResponseRecorder, v any) {
		ExpectWithOffset(1, json.Unmarshal(rr.Body.Bytes(), v)).To(Succeed())
	}

	registerAndConfirm := func(email, username string) {
		rr := do(http.MethodPost, "/api/v1/auth/register", user.RegisterDTO{Email: email, Username: username, Password: password}, nil)
		ExpectWithOffset(1, rr.Code).To(Equal(http.StatusCreated), rr.Body.String())

		bus.Wait()
		token := mail.tokenFor(email)
		ExpectWithOffset(1, token).NotTo(BeEmpty())

		rr = do(http.MethodGet, "/api/v1/auth/confirm/"+token, nil, basic(email))
		ExpectWithOffset(1, rr.Code).To(Equal(http.StatusOK), rr.Body.String())
	}

	createToDo := func(body string, creds credentials) string {
		rr := do(http.MethodPost, "/api/v1/todos/", todo.CreateToDoDTO{Body: body}, creds)
		ExpectWithOffset(1, rr.Code).To(Equal(http.StatusCreated), rr.Body.String())
		return rr.Header().Get("Location")
	}

	BeforeEach(func() {
		ctx := context.Background()
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&roleDatamodel.Role{}, &userDatamodel.User{}, &todoDatamodel.ToDo{})).To(Succeed())
		DeferCleanup(sqlDB.Close)

		mr, err := miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(rdb.Close)

		tokens, err := auth.NewJWTTokenService(secret)
		Expect(err).NotTo(HaveOccurred())
		sessions := session.NewRedisStore(rdb, "e2e:session", time.Hour)

		mail = &outbox{}
		bus = events.NewEventBus(lg)
		notification.NewConfirmationNotifier(mail, "http://todo.test", lg).RegisterEventHandlers(bus)

		roles := role.NewService(rolePostgres.NewRoleRepository(db), lg)
		Expect(roles.Bootstrap(ctx, role.DefaultTable(), role.NameUser)).To(Succeed())

		users := user.NewService(
			userPostgres.NewUserRepository(db),
			roles,
			credential.NewBcrypt(4),
			tokens,
			bus,
			user.Config{AdminEmail: adminEmail, ConfirmationTTL: time.Hour},
			lg,
		)
		todos := todo.NewService(todoPostgres.NewToDoRepository(db), todo.NewMarkdownRenderer(), auth.NewGate(lg), lg)

		docs, err := swagger.Load(ctx)
		Expect(err).NotTo(HaveOccurred())

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Health:        rest.NewHealthHandler(sqlDB, rdb),
			Docs:          docs,
			Authenticator: auth.NewAuthenticator(users, tokens, sessions),
			Auth:          auth.NewHandler(users, tokens, sessions, time.Hour, time.Hour),
			User:          user.NewHandler(users, todos),
			Role:          role.NewHandler(transport.NewBaseHandler(lg), roles),
			ToDo:          todo.NewHandler(todos, 20),
		}, lg)
	})

	It("serves health and the API document without credentials", func() {
		rr := do(http.MethodGet, "/api/v1/health", nil, nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		var health rest.HealthResponse
		decode(rr, &health)
		Expect(health.Components).To(HaveKey("database"))
		Expect(health.Components).To(HaveKey("redis"))

		rr = do(http.MethodGet, swagger.SpecPath, nil, nil)
		Expect(rr.Code).To(Equal(http.StatusOK))
		Expect(rr.Body.String()).To(ContainSubstring("/todos/"))
	})

	It("rejects anonymous access to the API", func() {
		rr := do(http.MethodGet, "/api/v1/todos/", nil, nil)
		Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		Expect(rr.Header().Get("X-Request-ID")).NotTo(BeEmpty())
	})

	It("keeps unconfirmed accounts out of to-do routes", func() {
		rr := do(http.MethodPost, "/api/v1/auth/register", user.RegisterDTO{Email: "new@example.com", Username: "newbie", Password: password}, nil)
		Expect(rr.Code).To(Equal(http.StatusCreated))

		rr = do(http.MethodGet, "/api/v1/todos/", nil, basic("new@example.com"))
		Expect(rr.Code).To(Equal(http.StatusForbidden))

		rr = do(http.MethodGet, "/api/v1/users/me", nil, basic("new@example.com"))
		Expect(rr.Code).To(Equal(http.StatusOK))
		var me user.ProfileResponse
		decode(rr, &me)
		Expect(me.Confirmed).To(BeFalse())
		Expect(me.Role).To(Equal(role.NameUser))
	})

	Describe("editing to-dos across accounts", func() {
		var aliceToken string

		BeforeEach(func() {
			registerAndConfirm("alice@example.com", "alice")
			registerAndConfirm(adminEmail, "boss")

			rr := do(http.MethodPost, "/api/v1/tokens", nil, basic("alice@example.com"))
			Expect(rr.Code).To(Equal(http.StatusOK))
			var tok auth.TokenResponse
			decode(rr, &tok)
			Expect(tok.Expiration).To(Equal(int64(3600)))
			aliceToken = tok.Token
		})

		It("lets only the author or an administrator change a to-do", func() {
			bossToDo := createToDo("boss's *plan*", basic(adminEmail))
			aliceToDo := createToDo("alice's list", bearer(aliceToken))

			rr := do(http.MethodPut, bossToDo, todo.UpdateToDoDTO{Body: "hijacked"}, bearer(aliceToken))
			Expect(rr.Code).To(Equal(http.StatusForbidden))

			rr = do(http.MethodPut, aliceToDo, todo.UpdateToDoDTO{Body: "reviewed by **boss**"}, basic(adminEmail))
			Expect(rr.Code).To(Equal(http.StatusOK))
			var updated todo.ToDoResponse
			decode(rr, &updated)
			Expect(updated.Body).To(Equal("reviewed by **boss**"))
			Expect(updated.BodyHTML).To(ContainSubstring("<strong>boss</strong>"))

			rr = do(http.MethodGet, bossToDo, nil, bearer(aliceToken))
			Expect(rr.Code).To(Equal(http.StatusOK))
			var unchanged todo.ToDoResponse
			decode(rr, &unchanged)
			Expect(unchanged.Body).To(Equal("boss's *plan*"))

			rr = do(http.MethodGet, "/api/v1/todos/", nil, bearer(aliceToken))
			Expect(rr.Code).To(Equal(http.StatusOK))
			var list todo.ListResponse
			decode(rr, &list)
			Expect(list.Count).To(Equal(int64(2)))
		})

		It("refuses to mint a token from a token", func() {
			rr := do(http.MethodPost, "/api/v1/tokens", nil, bearer(aliceToken))
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})

		It("reserves role management for administrators", func() {
			rr := do(http.MethodGet, "/api/v1/roles", nil, bearer(aliceToken))
			Expect(rr.Code).To(Equal(http.StatusForbidden))

			rr = do(http.MethodGet, "/api/v1/roles", nil, basic(adminEmail))
			Expect(rr.Code).To(Equal(http.StatusOK))
		})

		It("authenticates with a session cookie after login", func() {
			rr := do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "alice@example.com", "password": password}, nil)
			Expect(rr.Code).To(Equal(http.StatusOK))

			var sessionCookie *http.Cookie
			for _, c := range rr.Result().Cookies() {
				if c.Name == session.CookieName {
					sessionCookie = c
				}
			}
			Expect(sessionCookie).NotTo(BeNil())

			createToDo("via cookie", cookie(sessionCookie))

			rr = do(http.MethodPost, "/api/v1/auth/logout", nil, cookie(sessionCookie))
			Expect(rr.Code).To(Equal(http.StatusNoContent))

			rr = do(http.MethodGet, "/api/v1/todos/", nil, cookie(sessionCookie))
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
