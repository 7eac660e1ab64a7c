package user_test

import (
	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/credential"
	"github.com/frahmantamala/todolist/internal/permission"
	"github.com/frahmantamala/todolist/internal/role"
	"github.com/frahmantamala/todolist/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("User", func() {
	var (
		userRole  *role.Role
		adminRole *role.Role
		roles     []*role.Role
	)

	BeforeEach(func() {
		userRole = &role.Role{ID: 1, Name: role.NameUser, Permissions: permission.Mask(0).Add(permission.Write), IsDefault: true}
		adminRole = &role.Role{ID: 2, Name: role.NameAdministrator, Permissions: permission.Mask(0).Add(permission.Write).Add(permission.Admin)}
		roles = []*role.Role{userRole, adminRole}
	})

	Describe("Password", func() {
		It("should never be readable", func() {
			u := &user.User{PasswordHash: "$2a$04$whatever"}
			plain, err := u.Password()
			Expect(plain).To(BeEmpty())
			Expect(err).To(MatchError(internal.ErrUnreadableAttribute))
		})

		It("should verify only the password it was set to", func() {
			hasher := credential.NewBcrypt(4)
			u := &user.User{}
			Expect(u.SetPassword(hasher, "cat")).To(Succeed())
			Expect(u.PasswordHash).NotTo(Equal("cat"))

			Expect(u.VerifyPassword(hasher, "cat")).To(BeTrue())
			Expect(u.VerifyPassword(hasher, "dog")).To(BeFalse())
		})

		It("should salt every hash", func() {
			hasher := credential.NewBcrypt(4)
			a, b := &user.User{}, &user.User{}
			Expect(a.SetPassword(hasher, "cat")).To(Succeed())
			Expect(b.SetPassword(hasher, "cat")).To(Succeed())
			Expect(a.PasswordHash).NotTo(Equal(b.PasswordHash))
		})

		It("should refuse an empty hash", func() {
			Expect((&user.User{}).VerifyPassword(credential.NewBcrypt(4), "")).To(BeFalse())
		})
	})

	Describe("ResolveRole", func() {
		cfg := user.RoleConfig{AdminEmail: "admin@example.com"}

		It("should give the admin address the administrator role", func() {
			Expect(user.ResolveRole("admin@example.com", cfg, roles)).To(Equal(adminRole))
		})

		It("should match the admin address case-insensitively", func() {
			Expect(user.ResolveRole(" Admin@Example.com", cfg, roles)).To(Equal(adminRole))
		})

		It("should give everyone else the default role", func() {
			Expect(user.ResolveRole("john@example.com", cfg, roles)).To(Equal(userRole))
		})

		It("should fall back to the default role when no admin address is configured", func() {
			Expect(user.ResolveRole("", user.RoleConfig{}, roles)).To(Equal(userRole))
		})

		It("should return nil when no roles exist", func() {
			Expect(user.ResolveRole("john@example.com", cfg, nil)).To(BeNil())
		})
	})

	Describe("Can", func() {
		It("should follow the role's permissions", func() {
			u := &user.User{}
			u.SetRole(userRole)
			Expect(*u.RoleID).To(Equal(userRole.ID))
			Expect(u.Can(permission.Write)).To(BeTrue())
			Expect(u.Can(permission.Admin)).To(BeFalse())
			Expect(u.IsAdministrator()).To(BeFalse())

			u.SetRole(adminRole)
			Expect(u.Can(permission.Admin)).To(BeTrue())
			Expect(u.IsAdministrator()).To(BeTrue())
		})

		It("should deny everything without a role", func() {
			var nilUser *user.User
			Expect(nilUser.Can(permission.Write)).To(BeFalse())

			u := &user.User{}
			u.SetRole(nil)
			Expect(u.RoleID).To(BeNil())
			Expect(u.Can(permission.Write)).To(BeFalse())
		})
	})

	Describe("ToProfile", func() {
		It("should expose the role without the password hash", func() {
			u := &user.User{ID: 3, Username: "john", PasswordHash: "secret-hash"}
			u.SetRole(adminRole)

			p := u.ToProfile()
			Expect(p.Role).To(Equal(role.NameAdministrator))
			Expect(p.Permissions).To(Equal([]string{"WRITE", "ADMIN"}))
		})
	})

	Describe("RegisterDTO", func() {
		valid := func() user.RegisterDTO {
			return user.RegisterDTO{Email: "john@example.com", Username: "john", Password: "correct horse"}
		}

		It("should accept a well formed registration", func() {
			Expect(valid().Validate()).To(Succeed())
		})

		DescribeTable("should reject malformed fields",
			func(mutate func(*user.RegisterDTO), code internal.ErrorCode) {
				dto := valid()
				mutate(&dto)
				err := dto.Validate()
				Expect(err).To(HaveOccurred())

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				details, ok := appErr.Details.(internal.ValidationErrors)
				Expect(ok).To(BeTrue())
				Expect(details.Errors[0].Code).To(Equal(string(code)))
			},
			Entry("missing email", func(d *user.RegisterDTO) { d.Email = "" }, internal.ErrCodeInvalidEmail),
			Entry("bad email", func(d *user.RegisterDTO) { d.Email = "not-an-email" }, internal.ErrCodeInvalidEmail),
			Entry("missing username", func(d *user.RegisterDTO) { d.Username = "  " }, internal.ErrCodeInvalidUsername),
			Entry("username starting with a digit", func(d *user.RegisterDTO) { d.Username = "1john" }, internal.ErrCodeInvalidUsername),
			Entry("short password", func(d *user.RegisterDTO) { d.Password = "short" }, internal.ErrCodeInvalidPassword),
		)

		It("should normalize the email", func() {
			dto := user.RegisterDTO{Email: "  John@Example.COM ", Username: " john "}
			dto.Normalize()
			Expect(dto.Email).To(Equal("john@example.com"))
			Expect(dto.Username).To(Equal("john"))
		})
	})
})
