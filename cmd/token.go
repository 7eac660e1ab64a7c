package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	tokenUserID int64
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage authentication tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue an authentication token for an existing user",
	Run: func(cmd *cobra.Command, args []string) {
		withDependencies(func(ctx context.Context, deps *Dependencies) error {
			u, err := deps.Users.GetByID(ctx, tokenUserID)
			if err != nil {
				return err
			}

			ttl := tokenTTL
			if ttl <= 0 {
				ttl = deps.Config.Security.AuthTokenTTL
			}

			token, err := deps.Tokens.IssueAuth(u.ID, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			deps.Logger.Info("token issued", "user_id", u.ID, "expires_in", ttl.String())
			return nil
		})
	},
}

func init() {
	tokenIssueCmd.Flags().Int64Var(&tokenUserID, "user-id", 0, "id of the user the token authenticates")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to security.auth_token_ttl)")
	_ = tokenIssueCmd.MarkFlagRequired("user-id")

	tokenCmd.AddCommand(tokenIssueCmd)
}
