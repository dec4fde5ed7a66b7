package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vertexautomation/site-server/internal/cache"
	"github.com/vertexautomation/site-server/internal/database"
	"github.com/vertexautomation/site-server/internal/model"
	"github.com/vertexautomation/site-server/internal/repository"
	"github.com/vertexautomation/site-server/internal/service"
	"github.com/vertexautomation/site-server/internal/util"
)

const commandTimeout = 2 * time.Minute

// cliConfig is the subset of server config the database commands need.
type cliConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
}

type services struct {
	db     *database.DB
	ledger *service.AccessCodeLedger
	roles  *service.RoleService
	legal  *service.LegalService
	creds  *service.CredentialStore
}

func openServices() (*services, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	users := repository.NewUserRepository(db.DB)
	roles := repository.NewRoleRepository(db.DB)
	consents := repository.NewConsentRepository(db.DB)
	return &services{
		db:     db,
		ledger: service.NewAccessCodeLedger(repository.NewAccessCodeRepository(db.DB)),
		roles:  service.NewRoleService(roles, users),
		legal:  service.NewLegalService(repository.NewLegalDocumentRepository(db.DB), consents, cache.New(0)),
		// Sessions are never opened from the CLI, so no secret or event publisher.
		creds: service.NewCredentialStore(users, repository.NewUserSessionRepository(db.DB), nil, ""),
	}, nil
}

// withServices opens the database for the duration of fn.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, s *services) error) error {
	s, err := openServices()
	if err != nil {
		return err
	}
	defer s.db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	return fn(ctx, s)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sitectl",
		Short:         "Operator tasks for the site server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newHashPasswordCmd(),
		newRenewCodesCmd(),
		newGrantRoleCmd(),
		newCreateUserCmd(),
		newActivateDocumentCmd(),
	)
	return root
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := util.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newRenewCodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "renew-codes",
		Short: "Replace every expired unused access code once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *services) error {
				result, err := s.ledger.RenewExpired(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "renewed=%d skipped=%d failed=%d\n", result.Renewed, result.Skipped, result.Failed)
				return err
			})
		},
	}
}

func newGrantRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-role <email> <admin|moderator|user>",
		Short: "Grant a role to an existing user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *services) error {
				assignment, err := s.roles.GrantByEmail(ctx, args[0], model.Role(args[1]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s (%s)\n", assignment.Role, args[0], assignment.ID)
				return nil
			})
		},
	}
}

func newCreateUserCmd() *cobra.Command {
	var (
		email    string
		password string
		fullName string
		admin    bool
	)
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user, optionally with the admin role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			var name *string
			if fullName != "" {
				name = &fullName
			}
			return withServices(cmd, func(ctx context.Context, s *services) error {
				user, err := s.creds.Register(ctx, email, password, name)
				if err != nil {
					return err
				}
				if admin {
					if _, err := s.roles.GrantByEmail(ctx, user.Email, model.RoleAdmin); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) admin=%t\n", user.Email, user.ID, admin)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.Flags().StringVar(&fullName, "name", "", "Full name (optional)")
	cmd.Flags().BoolVar(&admin, "admin", false, "Also grant the admin role")
	return cmd
}

func newActivateDocumentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate-document <id> [terms_of_service|privacy_policy]",
		Short: "Make a legal document the active version of its type",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, func(ctx context.Context, s *services) error {
				if len(args) == 2 {
					doc, err := s.legal.Get(ctx, args[0])
					if err != nil {
						return err
					}
					if doc.DocumentType != model.DocumentType(args[1]) {
						return fmt.Errorf("document %s is a %s, not a %s", doc.ID, doc.DocumentType, args[1])
					}
				}
				doc, err := s.legal.Activate(ctx, "cli", args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "activated %s %s\n", doc.DocumentType, doc.Version)
				return nil
			})
		},
	}
}
