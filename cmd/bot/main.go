package main

import (
	"fmt"
	"os"

	"github.com/JabirHus/NCTB/internal/config"
	"github.com/JabirHus/NCTB/internal/exchange"
	"github.com/JabirHus/NCTB/internal/exchange/bridge"
	"github.com/JabirHus/NCTB/internal/exchange/paper"
	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/JabirHus/NCTB/internal/models"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "nctb",
		Short: "Signal-driven trading bot with master/slave trade copying",
		Long: `nctb runs the per-instrument execution engine against the master account
and mirrors master positions onto every configured slave account.`,
		SilenceUsage: true,
		RunE:         runBot,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default configs/config.yaml)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(accountsCmd())
	rootCmd.AddCommand(strategyCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:      cfg.Runtime.Log.Level,
		Format:     cfg.Runtime.Log.Format,
		Output:     cfg.Runtime.Log.File,
		MaxSize:    cfg.Runtime.Log.MaxSize,
		MaxBackups: cfg.Runtime.Log.MaxBackups,
		MaxAge:     cfg.Runtime.Log.MaxAge,
		Compress:   cfg.Runtime.Log.Compress,
	})
}

// broker bundles the live or paper broker with its teardown.
type broker struct {
	exchange.Broker
	paper *paper.Broker
	live  *bridge.Client
}

func (b *broker) Close() error {
	if b.live != nil {
		return b.live.Close()
	}
	return nil
}

func newBroker(cfg *config.Config, accts models.Accounts, log *logger.Logger) *broker {
	if cfg.Runtime.DryRun {
		p := paper.New()
		var instruments []models.Instrument
		for _, sym := range cfg.Execution.Instruments {
			instruments = append(instruments, paper.DefaultInstrument(sym))
		}
		if accts.Master != nil {
			p.AddAccount(*accts.Master, instruments...)
		}
		for _, s := range accts.Slaves {
			p.AddAccount(s, instruments...)
		}
		return &broker{Broker: p, paper: p}
	}

	c := bridge.New(cfg.Broker.BaseUrl, cfg.Broker.WSUrl, cfg.Broker.ApiKey, cfg.Broker.Secret, cfg.Broker.Timeout, log)
	return &broker{Broker: c, live: c}
}
