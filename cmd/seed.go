package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/frahmantamala/todolist/internal/role"
	"github.com/frahmantamala/todolist/internal/user"
	"github.com/spf13/cobra"
)

var (
	roleEntries []string
	defaultRole string

	adminEmail    string
	adminUsername string
	adminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed database with initial data",
}

var seedRolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Create or refresh the built-in roles",
	Run: func(cmd *cobra.Command, args []string) {
		withDependencies(func(ctx context.Context, deps *Dependencies) error {
			return seedRoles(ctx, deps)
		})
	},
}

var seedAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create a confirmed administrator account",
	Run: func(cmd *cobra.Command, args []string) {
		withDependencies(func(ctx context.Context, deps *Dependencies) error {
			if err := seedRoles(ctx, deps); err != nil {
				return err
			}
			return seedAdmin(ctx, deps)
		})
	},
}

func init() {
	seedRolesCmd.Flags().StringArrayVar(&roleEntries, "role", nil, `role definition "Name=PERM,PERM" (repeatable; defaults to the built-in roles)`)
	seedRolesCmd.Flags().StringVar(&defaultRole, "default", role.NameUser, "role given to new users")

	seedAdminCmd.Flags().StringVar(&adminEmail, "email", "", "administrator email")
	seedAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "administrator username")
	seedAdminCmd.Flags().StringVar(&adminPassword, "password", "", "administrator password")
	_ = seedAdminCmd.MarkFlagRequired("email")
	_ = seedAdminCmd.MarkFlagRequired("password")

	seedCmd.AddCommand(seedRolesCmd)
	seedCmd.AddCommand(seedAdminCmd)
}

func withDependencies(fn func(ctx context.Context, deps *Dependencies) error) {
	ctx := context.Background()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	if err := fn(ctx, deps); err != nil {
		deps.Logger.Error("command failed", "error", err)
		deps.Close()
		os.Exit(1)
	}
}

func seedRoles(ctx context.Context, deps *Dependencies) error {
	table := role.DefaultTable()
	if len(roleEntries) > 0 {
		parsed, err := role.ParseTable(roleEntries)
		if err != nil {
			return err
		}
		table = parsed
	}
	if defaultRole == "" {
		defaultRole = role.NameUser
	}

	if err := deps.Roles.Bootstrap(ctx, table, defaultRole); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}

	def, err := deps.Roles.GetDefault(ctx)
	if err != nil {
		return fmt.Errorf("failed to read default role: %w", err)
	}
	deps.Logger.Info("roles seeded", "roles", table.Names(), "default", def.Name)
	return nil
}

func seedAdmin(ctx context.Context, deps *Dependencies) error {
	u, token, err := deps.Users.Register(ctx, user.RegisterDTO{
		Email:    adminEmail,
		Username: adminUsername,
		Password: adminPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to register administrator: %w", err)
	}

	ok, err := deps.Users.Confirm(ctx, u, token)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("failed to confirm administrator %d", u.ID)
	}

	if !u.IsAdministrator() {
		if u, err = deps.Users.AssignRole(ctx, u.ID, role.NameAdministrator); err != nil {
			return fmt.Errorf("failed to assign administrator role: %w", err)
		}
	}

	deps.Logger.Info("administrator seeded", "user_id", u.ID, "email", u.Email)
	return nil
}
