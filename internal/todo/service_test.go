package todo_test

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/auth"
	todoDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/todo"
	"github.com/frahmantamala/todolist/internal/permission"
	"github.com/frahmantamala/todolist/internal/role"
	"github.com/frahmantamala/todolist/internal/todo"
	todoPostgres "github.com/frahmantamala/todolist/internal/todo/postgres"
	"github.com/frahmantamala/todolist/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	userRole  = &role.Role{ID: 1, Name: role.NameUser, Permissions: permission.Mask(0).Add(permission.Write), IsDefault: true}
	adminRole = &role.Role{ID: 2, Name: role.NameAdministrator, Permissions: permission.Mask(0).Add(permission.Write).Add(permission.Admin)}
	readOnly  = &role.Role{ID: 3, Name: "Reader"}
)

func newTestUser(id int64, r *role.Role) *user.User {
	u := &user.User{ID: id, Username: "user", Confirmed: true}
	u.SetRole(r)
	return u
}

type failingRenderer struct{}

func (failingRenderer) Render(string) (string, error) {
	return "", errors.New("renderer exploded")
}

func openTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	Expect(err).NotTo(HaveOccurred())
	sqlDB, err := db.DB()
	Expect(err).NotTo(HaveOccurred())
	sqlDB.SetMaxOpenConns(1)
	Expect(db.AutoMigrate(&todoDatamodel.ToDo{})).To(Succeed())
	return db
}

var _ = Describe("ToDo Service", func() {
	var (
		ctx     context.Context
		slogger *slog.Logger
		repo    todo.RepositoryAPI
		service *todo.Service
		alice   *user.User
		bob     *user.User
		admin   *user.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		repo = todoPostgres.NewToDoRepository(openTestDB())
		service = todo.NewService(repo, todo.NewMarkdownRenderer(), auth.NewGate(slogger), slogger)

		alice = newTestUser(1, userRole)
		bob = newTestUser(2, userRole)
		admin = newTestUser(3, adminRole)
	})

	Describe("Create", func() {
		It("should store the body with its rendered HTML", func() {
			t, err := service.Create(ctx, alice, todo.CreateToDoDTO{Body: "buy **milk**"})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.ID).To(BeNumerically(">", 0))
			Expect(t.UserID).To(Equal(alice.ID))
			Expect(t.BodyHTML).To(ContainSubstring("<strong>milk</strong>"))
			Expect(t.Timestamp.Location()).To(Equal(time.UTC))

			stored, err := service.Get(ctx, t.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Body).To(Equal("buy **milk**"))
		})

		It("should stamp every row with its own creation time", func() {
			first, err := service.Create(ctx, alice, todo.CreateToDoDTO{Body: "first"})
			Expect(err).NotTo(HaveOccurred())
			second, err := service.Create(ctx, alice, todo.CreateToDoDTO{Body: "second"})
			Expect(err).NotTo(HaveOccurred())

			Expect(second.Timestamp.Before(first.Timestamp)).To(BeFalse())
		})

		It("should require WRITE", func() {
			_, err := service.Create(ctx, newTestUser(4, readOnly), todo.CreateToDoDTO{Body: "hello"})
			Expect(err).To(MatchError(internal.ErrForbidden))

			_, err = service.Create(ctx, newTestUser(5, nil), todo.CreateToDoDTO{Body: "hello"})
			Expect(err).To(MatchError(internal.ErrForbidden))
		})

		It("should reject an empty body", func() {
			_, err := service.Create(ctx, alice, todo.CreateToDoDTO{Body: "   "})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should report renderer failures as internal errors", func() {
			service = todo.NewService(repo, failingRenderer{}, auth.NewGate(slogger), slogger)
			_, err := service.Create(ctx, alice, todo.CreateToDoDTO{Body: "hello"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})
	})

	Describe("Update", func() {
		var bobs *todo.ToDo

		BeforeEach(func() {
			var err error
			bobs, err = service.Create(ctx, bob, todo.CreateToDoDTO{Body: "bob's todo"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should let the author edit", func() {
			t, err := service.Update(ctx, bob, bobs.ID, todo.UpdateToDoDTO{Body: "edited *by bob*"})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Body).To(Equal("edited *by bob*"))
			Expect(t.BodyHTML).To(ContainSubstring("<em>by bob</em>"))
			Expect(t.Timestamp.Equal(bobs.Timestamp)).To(BeTrue())
		})

		It("should forbid another plain user", func() {
			_, err := service.Update(ctx, alice, bobs.ID, todo.UpdateToDoDTO{Body: "hijacked"})
			Expect(err).To(MatchError(internal.ErrForbidden))

			stored, err := service.Get(ctx, bobs.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Body).To(Equal("bob's todo"))
		})

		It("should let an administrator edit anyone's todo", func() {
			t, err := service.Update(ctx, admin, bobs.ID, todo.UpdateToDoDTO{Body: "moderated"})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.UserID).To(Equal(bob.ID))
		})

		It("should report a missing todo as not found before checking ownership", func() {
			_, err := service.Update(ctx, alice, 999, todo.UpdateToDoDTO{Body: "x"})
			Expect(err).To(MatchError(internal.ErrToDoNotFound))
		})

		It("should reject an empty body", func() {
			_, err := service.Update(ctx, bob, bobs.ID, todo.UpdateToDoDTO{Body: ""})
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for _, body := range []string{"one", "two", "three"} {
				_, err := service.Create(ctx, alice, todo.CreateToDoDTO{Body: body})
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := service.Create(ctx, bob, todo.CreateToDoDTO{Body: "four"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should page through every todo newest first", func() {
			p, err := service.List(ctx, 1, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Total).To(Equal(int64(4)))
			Expect(p.Items).To(HaveLen(3))
			Expect(p.Items[0].Body).To(Equal("four"))
			Expect(p.HasPrev()).To(BeFalse())
			Expect(p.HasNext()).To(BeTrue())

			p, err = service.List(ctx, 2, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Items).To(HaveLen(1))
			Expect(p.Items[0].Body).To(Equal("one"))
			Expect(p.HasPrev()).To(BeTrue())
			Expect(p.HasNext()).To(BeFalse())
		})

		It("should list one author's todos", func() {
			p, err := service.ListByUser(ctx, alice.ID, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Total).To(Equal(int64(3)))
			Expect(p.Items[0].Body).To(Equal("three"))

			count, err := service.CountByUser(ctx, bob.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
		})

		It("should return an empty last page for a page far past the end", func() {
			p, err := service.List(ctx, math.MaxInt/20+2, 20)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Items).To(BeEmpty())
			Expect(p.Total).To(Equal(int64(4)))
			Expect(p.Page).To(Equal(math.MaxInt / 20))
			Expect(p.HasPrev()).To(BeTrue())
			Expect(p.HasNext()).To(BeFalse())
		})

		It("should report no next page once the total is reached", func() {
			Expect((&todo.Page{Page: 2, PerPage: 2, Total: 4}).HasNext()).To(BeFalse())
			Expect((&todo.Page{Page: 1, PerPage: 2, Total: 3}).HasNext()).To(BeTrue())
			Expect((&todo.Page{Page: 1, PerPage: 20, Total: 0}).HasNext()).To(BeFalse())
			Expect((&todo.Page{Page: math.MaxInt, PerPage: 2, Total: 10}).HasNext()).To(BeFalse())
		})

		It("should clamp a nonsensical page", func() {
			p, err := service.List(ctx, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Page).To(Equal(1))
			Expect(p.PerPage).To(Equal(20))
		})
	})
})
