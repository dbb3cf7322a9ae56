package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JabirHus/NCTB/internal/config"
	"github.com/JabirHus/NCTB/internal/copier"
	"github.com/JabirHus/NCTB/internal/engine"
	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/exchange/paper"
	"github.com/JabirHus/NCTB/internal/logger"
	"github.com/JabirHus/NCTB/internal/metrics"
	"github.com/JabirHus/NCTB/internal/notify"
	"github.com/JabirHus/NCTB/internal/store/accounts"
	"github.com/JabirHus/NCTB/internal/store/redis"
	"github.com/JabirHus/NCTB/internal/store/sqlite"
	"github.com/JabirHus/NCTB/internal/strategy"
	"github.com/JabirHus/NCTB/internal/supervisor"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the execution engine and the trade copier",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	log.Info("Bot starting.")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sqlite.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	def, err := loadStrategy(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	evaluator, err := strategy.NewEvaluator(def)
	if err != nil {
		return err
	}

	acctStore := accounts.New(cfg.Storage.AccountsFile)
	accts, err := acctStore.Load()
	if err != nil {
		return err
	}
	if accts.Master == nil {
		return fmt.Errorf("%w: add one with `nctb accounts add --kind master`", exception.ErrNoMaster)
	}

	m := metrics.New()
	var srv *metrics.Server
	if cfg.Metrics.Addr != "" {
		srv = metrics.NewServer(cfg.Metrics.Addr, m, log)
		srv.AddCheck("sqlite", db.Ping)
		srv.Start()
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			_ = srv.Stop(stopCtx)
		}()
	}

	notifiers := []notify.Notifier{notify.NewLogNotifier(log)}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.Notify.WebhookURL))
	}
	dispatcher := notify.NewDispatcher(cfg.Notify.QueueSize, log, m, notifiers...)
	dispatcher.Start()
	defer dispatcher.Stop()

	b := newBroker(cfg, accts, log)
	defer b.Close()
	if b.paper != nil {
		feed := paper.NewFeed(b.paper, cfg.Execution.Instruments, cfg.Execution.Bars, time.Now().UnixNano())
		feed.Seed(time.Now())
		go feed.Run(ctx, time.Second)
		log.Warn("Dry run: trading against the paper broker.")
	} else {
		b.live.OnReconnect(func() {
			m.Reconnected()
			dispatcher.Log("Tick stream reconnected.")
		})
		if err := b.live.StartTicks(ctx, cfg.Execution.Instruments); err != nil {
			log.WithError(err).Warn("Tick stream unavailable, quotes will be polled.")
		}
	}

	tickets, closeTickets, err := ticketStore(cfg, db)
	if err != nil {
		return err
	}
	defer closeTickets()
	if rs, ok := tickets.(*redis.TicketStore); ok && srv != nil {
		srv.AddCheck("redis", rs.Ping)
	}

	var eng supervisor.Engine
	if cfg.Execution.Enabled {
		eng = engine.New(cfg.Execution, b, *accts.Master, evaluator, log,
			engine.WithHistory(db),
			engine.WithNotifier(dispatcher),
			engine.WithMetrics(m),
		)
	}
	var repl supervisor.Replicator
	if cfg.Replication.Enabled {
		repl = copier.New(cfg.Replication, b, acctStore, tickets, log,
			copier.WithNotifier(dispatcher),
			copier.WithMetrics(m),
			copier.WithBotMagic(cfg.Execution.Magic),
		)
	}

	sup := supervisor.New(eng, repl, b, cfg.Runtime.ResyncInterval, log, m, dispatcher)
	if err := sup.Start(ctx); err != nil {
		return err
	}
	dispatcher.Log(fmt.Sprintf("Bot started: %d instruments, %d slaves.", len(cfg.Execution.Instruments), len(accts.Slaves)))

	<-sigCh

	log.Info("Shutting down.")
	sup.Stop()
	cancel()

	log.Info("Bot stopped.")
	return nil
}

// loadStrategy prefers the stored definition, then the configured file, then
// the built-in default. File and default definitions are stored for next time.
func loadStrategy(ctx context.Context, cfg *config.Config, db *sqlite.Store, log *logger.Logger) (strategy.Definition, error) {
	stored, err := db.LoadStrategy(ctx)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		return *stored, nil
	}

	def := strategy.Default()
	if cfg.Storage.StrategyFile != "" {
		data, err := os.ReadFile(cfg.Storage.StrategyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read strategy file: %v", exception.ErrConfiguration, err)
		}
		if def, err = strategy.ParseYAML(data); err != nil {
			return nil, err
		}
	} else {
		log.Warn("No stored strategy, using the default RSI + MACD setup.")
	}

	if err := db.SaveStrategy(ctx, def); err != nil {
		log.WithError(err).Warn("Could not store the strategy.")
	}
	return def, nil
}

// ticketStore picks the copied-ticket backend.
func ticketStore(cfg *config.Config, db *sqlite.Store) (copier.StateStore, func(), error) {
	if cfg.Replication.StateBackend != "redis" {
		return db, func() {}, nil
	}
	rs, err := redis.New(redis.Config{
		Addr:     cfg.Storage.RedisAddr,
		Password: cfg.Storage.RedisPassword,
		DB:       cfg.Storage.RedisDB,
		Prefix:   cfg.Storage.RedisPrefix,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("redis state backend: %w", err)
	}
	return rs, func() { _ = rs.Close() }, nil
}
