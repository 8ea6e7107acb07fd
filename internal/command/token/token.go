package token

import (
	"errors"
	"fmt"
	"time"

	configpkg "github.com/cirruslabs/catcache/internal/config"
	tokenpkg "github.com/cirruslabs/catcache/internal/server/token"
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	var configPath string
	var secret string
	var subject string
	var validity time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for PUT and DELETE requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := configpkg.ParseFile(configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("secret") {
				config.Auth.Secret = secret
			}

			if config.Auth.Secret == "" {
				return errors.New("secret (--secret or auth.secret in the configuration file) " +
					"needs to be specified")
			}

			tokenManager, err := tokenpkg.NewManager(config.Auth.Secret)
			if err != nil {
				return err
			}

			rawToken, err := tokenManager.Issue(subject, validity)
			if err != nil {
				return fmt.Errorf("failed to issue a token: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rawToken)

			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "file", "f", "",
		"configuration file path to take the secret from (e.g. /etc/catcache.yml)")
	cmd.Flags().StringVar(&secret, "secret", "",
		"secret the server was configured with")
	cmd.Flags().StringVar(&subject, "subject", "catcache",
		"who the token is issued to, shows up in the server logs")
	cmd.Flags().DurationVar(&validity, "validity", 0,
		"how long the token is valid for, zero means forever")

	return cmd
}
