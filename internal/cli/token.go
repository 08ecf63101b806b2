package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clientflow/alertrunner/internal/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue API access tokens",
	}
	cmd.AddCommand(newTokenMintCmd())
	return cmd
}

func newTokenMintCmd() *cobra.Command {
	var role, tenantID, subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a signed token for the API",
		Example: `  alertrunner token mint --role cron --subject scheduler --ttl 720h
  alertrunner token mint --role tenant --tenant 7f1c... --subject owner@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("JWT_SECRET is not configured")
			}
			if ttl <= 0 {
				ttl = cfg.Auth.AccessTokenExpiry
			}

			token, err := auth.MintToken(subject, role, tenantID, cfg.Auth.JWTSecret, ttl)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(map[string]interface{}{
					"token":     token,
					"role":      role,
					"expiresAt": time.Now().Add(ttl).UTC(),
				})
			}
			fmt.Fprintln(stdout, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", auth.RoleCron, "token role: admin, cron or tenant")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID, required for tenant tokens")
	cmd.Flags().StringVar(&subject, "subject", "alertrunner-cli", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_ACCESS_EXPIRY)")

	return cmd
}
