package main

import (
	"fmt"
	"os"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/store/sqlite"
	"github.com/JabirHus/NCTB/internal/strategy"
	"github.com/spf13/cobra"
)

func strategyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Show or replace the stored indicator strategy",
	}
	cmd.AddCommand(strategyShowCmd())
	cmd.AddCommand(strategyImportCmd())
	return cmd
}

func openStore() (*sqlite.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return sqlite.Open(cfg.Storage.SQLitePath)
}

func strategyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored strategy as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			stored, err := db.LoadStrategy(cmd.Context())
			if err != nil {
				return err
			}
			def := strategy.Default()
			if stored != nil {
				def = *stored
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), "# nothing stored, showing the default")
			}

			out, err := def.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func strategyImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Validate a YAML strategy file and store it",
		Long:  "The running bot picks the new strategy up on its next start.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("%w: %v", exception.ErrInvalidArgument, err)
			}
			def, err := strategy.ParseYAML(data)
			if err != nil {
				return err
			}

			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.SaveStrategy(cmd.Context(), def); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored strategy with %d enabled indicators.\n", def.EnabledCount())
			return nil
		},
	}
}
