package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/johnquangdev/meeting-pipeline/pkg/jwt"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var userFlag string
	var email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			userID := uuid.New()
			if userFlag != "" {
				if userID, err = uuid.Parse(userFlag); err != nil {
					return fmt.Errorf("invalid user id %q: %w", userFlag, err)
				}
			}

			manager := jwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry, cfg.JWT.Issuer)
			token, err := manager.GenerateAccessToken(userID, email)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user_id:    %s\n", userID)
			fmt.Fprintf(out, "expires_in: %s\n", manager.GetAccessExpiry())
			fmt.Fprintf(out, "token:      %s\n", token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userFlag, "user", "", "User ID (UUID); a new one is generated when empty")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	return cmd
}
