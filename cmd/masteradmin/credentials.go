// cmd/masteradmin/credentials.go
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/auth"
	"github.com/spf13/cobra"
)

var tokenExpiry time.Duration

func init() {
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 0, "Token lifetime (defaults to the configured JWT expiry)")
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token for the configured master admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.JWT.Secret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		if cfg.Admin.Email == "" {
			return errors.New("ADMIN_EMAIL is not set")
		}

		expiry := cfg.JWT.ExpiryPeriod
		if tokenExpiry > 0 {
			expiry = tokenExpiry
		}

		token, err := auth.NewTokenManager(cfg.JWT.Secret, expiry).Generate(cfg.Admin.Email)
		if err != nil {
			return fmt.Errorf("generating token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print an argon2id hash for ADMIN_PASSWORD_HASH",
	Long:  `Hashes the password given as argument, or the first line of stdin when no argument is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		if password == "" {
			return errors.New("password must not be empty")
		}

		hash, err := auth.NewPasswordHasher().Hash(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}
