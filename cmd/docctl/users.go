package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/cui"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
)

// seedUserCmd creates a user or resets an existing one's password and role.
func seedUserCmd() *cobra.Command {
	var email, name, password, role string
	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create or update a login",
		RunE: func(c *cobra.Command, _ []string) error {
			switch role {
			case service.RoleAdmin, service.RoleAccountant, service.RoleUser:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			if len(password) < 8 {
				return errors.New("password must have at least 8 characters")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := infra.NewDatabase(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), service.BcryptCost)
			if err != nil {
				return err
			}

			users := repository.NewUserRepository(db)
			ctx := c.Context()
			u, err := users.FindByEmail(ctx, email)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				u = &model.User{Email: email, Name: name, Role: role, Active: true, PasswordHash: string(hash)}
				err = users.Create(ctx, u)
			case err == nil:
				u.PasswordHash = string(hash)
				u.Role = role
				u.Active = true
				if name != "" {
					u.Name = name
				}
				err = users.Update(ctx, u)
			}
			if err != nil {
				return err
			}
			log.Info().Str("email", u.Email).Str("role", u.Role).Str("id", u.ID.String()).Msg("user seeded")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&password, "password", "", "plain password")
	cmd.Flags().StringVar(&role, "role", service.RoleAdmin, "admin, accountant or user")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for manual inserts",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			h, err := bcrypt.GenerateFromPassword([]byte(args[0]), service.BcryptCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), string(h))
			return nil
		},
	}
}

func validateCUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-cui <code>...",
		Short: "Check Romanian fiscal codes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			bad := 0
			for _, code := range args {
				if err := cui.Validate(code); err != nil {
					bad++
					fmt.Fprintf(c.OutOrStdout(), "%-14s invalid: %v\n", strings.TrimSpace(code), err)
					continue
				}
				fmt.Fprintf(c.OutOrStdout(), "%-14s ok (%s)\n", strings.TrimSpace(code), cui.Clean(code))
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d codes are invalid", bad, len(args))
			}
			return nil
		},
	}
}
