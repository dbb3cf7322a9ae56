package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/JabirHus/NCTB/internal/store/accounts"
	"github.com/pquerna/otp/totp"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage master and slave accounts",
	}
	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsAddCmd())
	cmd.AddCommand(accountsRemoveCmd())
	cmd.AddCommand(accountsClearCmd())
	return cmd
}

func accountStore() (*accounts.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return accounts.New(cfg.Storage.AccountsFile), nil
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := accountStore()
			if err != nil {
				return err
			}
			accts, err := store.Load()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tLOGIN\tSERVER\t2FA")
			if accts.Master != nil {
				printAccount(w, models.AccountMaster, *accts.Master)
			}
			for _, s := range accts.Slaves {
				printAccount(w, models.AccountSlave, s)
			}
			return w.Flush()
		},
	}
}

func printAccount(w *tabwriter.Writer, kind models.AccountKind, c models.Credentials) {
	twoFA := "no"
	if c.TOTPSecret != "" {
		twoFA = "yes"
	}
	fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", kind, c.Login, c.Server, twoFA)
}

func accountsAddCmd() *cobra.Command {
	var (
		kind      string
		creds     models.Credentials
		skipCheck bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a slave account or set the master account",
		Long: `Add verifies the credentials by logging in through the broker before
storing them. Adding a master replaces the previous one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			k := models.AccountKind(kind)
			if k != models.AccountMaster && k != models.AccountSlave {
				return fmt.Errorf("%w: kind must be master or slave", exception.ErrInvalidArgument)
			}
			if creds.TOTPSecret != "" {
				if _, err := totp.GenerateCode(creds.TOTPSecret, time.Now()); err != nil {
					return fmt.Errorf("%w: totp secret: %v", exception.ErrInvalidArgument, err)
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if !skipCheck && !cfg.Runtime.DryRun {
				log := newLogger(cfg)
				b := newBroker(cfg, models.Accounts{}, log)
				defer b.Close()

				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Broker.Timeout+5*time.Second)
				defer cancel()
				if _, err := b.Login(ctx, creds); err != nil {
					return fmt.Errorf("login check for %d failed: %w", creds.Login, err)
				}
			}

			if err := accounts.New(cfg.Storage.AccountsFile).Save(k, creds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s account %d.\n", k, creds.Login)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(models.AccountSlave), "master or slave")
	cmd.Flags().Int64Var(&creds.Login, "login", 0, "account login")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.Flags().StringVar(&creds.Server, "server", "", "broker server name")
	cmd.Flags().StringVar(&creds.TOTPSecret, "totp", "", "base32 TOTP secret when the account uses 2FA")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "store without a login check")
	_ = cmd.MarkFlagRequired("login")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}

func accountsRemoveCmd() *cobra.Command {
	var (
		kind  string
		login int64
	)

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a stored account",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := accountStore()
			if err != nil {
				return err
			}
			if err := store.Remove(models.AccountKind(kind), login); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s account %d.\n", kind, login)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(models.AccountSlave), "master or slave")
	cmd.Flags().Int64Var(&login, "login", 0, "account login")
	_ = cmd.MarkFlagRequired("login")
	return cmd
}

func accountsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored account",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := accountStore()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All accounts removed.")
			return nil
		},
	}
}
