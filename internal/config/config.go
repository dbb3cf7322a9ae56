package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/spf13/viper"
)

type Config struct {
	Broker      BrokerConfig
	Execution   ExecutionConfig
	Replication ReplicationConfig
	Storage     StorageConfig
	Runtime     RuntimeConfig
	Metrics     MetricsConfig
	Notify      NotifyConfig
}

type BrokerConfig struct {
	BaseUrl string
	WSUrl   string
	ApiKey  string
	Secret  string
	Timeout time.Duration
}

type ExecutionConfig struct {
	Enabled        bool
	Instruments    []string
	Volume         float64
	PollInterval   time.Duration
	Cooldown       time.Duration
	Bars           int
	Timeframe      string
	StopLossPips   float64
	TakeProfitPips float64
	Deviation      int
	Magic          int64
}

type ReplicationConfig struct {
	Enabled           bool
	PollInterval      time.Duration
	SuppressionWindow time.Duration
	StateBackend      string
	Deviation         int
	Magic             int64
}

type StorageConfig struct {
	SQLitePath    string
	AccountsFile  string
	StrategyFile  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

type RuntimeConfig struct {
	DryRun         bool
	ResyncInterval time.Duration
	Log            LogConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

type MetricsConfig struct {
	Addr string
}

type NotifyConfig struct {
	WebhookURL string
	QueueSize  int
}

var envPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Load reads configs/config.yaml (or path when set), applies NCTB_* env
// overrides and ${ENV} substitution for secrets.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	v.SetEnvPrefix("NCTB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config: %v", exception.ErrConfiguration, err)
		}
	}

	cfg := &Config{}

	cfg.Broker = BrokerConfig{
		BaseUrl: v.GetString("broker.base_url"),
		WSUrl:   v.GetString("broker.ws_url"),
		ApiKey:  envSub(v, "broker.api_key"),
		Secret:  envSub(v, "broker.secret"),
		Timeout: v.GetDuration("broker.timeout"),
	}

	cfg.Execution = ExecutionConfig{
		Enabled:        v.GetBool("execution.enabled"),
		Instruments:    v.GetStringSlice("execution.instruments"),
		Volume:         v.GetFloat64("execution.volume"),
		PollInterval:   v.GetDuration("execution.poll_interval"),
		Cooldown:       v.GetDuration("execution.cooldown"),
		Bars:           v.GetInt("execution.bars"),
		Timeframe:      v.GetString("execution.timeframe"),
		StopLossPips:   v.GetFloat64("execution.stop_loss_pips"),
		TakeProfitPips: v.GetFloat64("execution.take_profit_pips"),
		Deviation:      v.GetInt("execution.deviation"),
		Magic:          v.GetInt64("execution.magic"),
	}

	cfg.Replication = ReplicationConfig{
		Enabled:           v.GetBool("replication.enabled"),
		PollInterval:      v.GetDuration("replication.poll_interval"),
		SuppressionWindow: v.GetDuration("replication.suppression_window"),
		StateBackend:      strings.ToLower(v.GetString("replication.state_backend")),
		Deviation:         v.GetInt("replication.deviation"),
		Magic:             v.GetInt64("replication.magic"),
	}

	cfg.Storage = StorageConfig{
		SQLitePath:    v.GetString("storage.sqlite_path"),
		AccountsFile:  v.GetString("storage.accounts_file"),
		StrategyFile:  v.GetString("storage.strategy_file"),
		RedisAddr:     v.GetString("storage.redis_addr"),
		RedisPassword: envSub(v, "storage.redis_password"),
		RedisDB:       v.GetInt("storage.redis_db"),
		RedisPrefix:   v.GetString("storage.redis_prefix"),
	}

	cfg.Runtime = RuntimeConfig{
		DryRun:         v.GetBool("runtime.dry_run"),
		ResyncInterval: v.GetDuration("runtime.resync_interval"),
		Log: LogConfig{
			Level:      v.GetString("runtime.log.level"),
			Format:     v.GetString("runtime.log.format"),
			File:       v.GetString("runtime.log.file"),
			MaxSize:    v.GetInt("runtime.log.max_size"),
			MaxBackups: v.GetInt("runtime.log.max_backups"),
			MaxAge:     v.GetInt("runtime.log.max_age"),
			Compress:   v.GetBool("runtime.log.compress"),
		},
	}

	cfg.Metrics = MetricsConfig{Addr: v.GetString("metrics.addr")}
	cfg.Notify = NotifyConfig{
		WebhookURL: envSub(v, "notify.webhook_url"),
		QueueSize:  v.GetInt("notify.queue_size"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("broker.timeout", 15*time.Second)

	v.SetDefault("execution.enabled", true)
	v.SetDefault("execution.instruments", []string{"EURUSD", "USDCHF", "AUDUSD", "USDCAD", "EURJPY", "EURGBP"})
	v.SetDefault("execution.volume", 0.1)
	v.SetDefault("execution.poll_interval", 4*time.Second)
	v.SetDefault("execution.cooldown", 60*time.Second)
	v.SetDefault("execution.bars", 100)
	v.SetDefault("execution.timeframe", "M1")
	v.SetDefault("execution.stop_loss_pips", 10)
	v.SetDefault("execution.take_profit_pips", 20)
	v.SetDefault("execution.deviation", 10)
	v.SetDefault("execution.magic", 234001)

	v.SetDefault("replication.enabled", true)
	v.SetDefault("replication.poll_interval", 1*time.Second)
	v.SetDefault("replication.suppression_window", 3*time.Second)
	v.SetDefault("replication.state_backend", "sqlite")
	v.SetDefault("replication.deviation", 10)
	v.SetDefault("replication.magic", 123456)

	v.SetDefault("storage.sqlite_path", "data/nctb.db")
	v.SetDefault("storage.accounts_file", "data/accounts.yaml")
	v.SetDefault("storage.redis_prefix", "nctb")

	v.SetDefault("runtime.resync_interval", 15*time.Minute)
	v.SetDefault("runtime.log.level", "info")
	v.SetDefault("runtime.log.format", "text")
	v.SetDefault("runtime.log.max_size", 50)
	v.SetDefault("runtime.log.max_backups", 5)
	v.SetDefault("runtime.log.max_age", 30)

	v.SetDefault("notify.queue_size", 256)
}

func (c *Config) Validate() error {
	var problems []string

	if c.Execution.Enabled {
		if len(c.Execution.Instruments) == 0 {
			problems = append(problems, "execution.instruments is empty")
		}
		if c.Execution.Volume <= 0 {
			problems = append(problems, "execution.volume must be positive")
		}
		if c.Execution.PollInterval <= 0 {
			problems = append(problems, "execution.poll_interval must be positive")
		}
		if c.Execution.Cooldown < 0 {
			problems = append(problems, "execution.cooldown must not be negative")
		}
		if c.Execution.Bars <= 0 {
			problems = append(problems, "execution.bars must be positive")
		}
	}
	if c.Replication.Enabled {
		if c.Replication.PollInterval <= 0 {
			problems = append(problems, "replication.poll_interval must be positive")
		}
		if c.Replication.SuppressionWindow < 0 {
			problems = append(problems, "replication.suppression_window must not be negative")
		}
		switch c.Replication.StateBackend {
		case "sqlite", "redis":
		default:
			problems = append(problems, fmt.Sprintf("replication.state_backend %q is not sqlite or redis", c.Replication.StateBackend))
		}
		if c.Replication.StateBackend == "redis" && c.Storage.RedisAddr == "" {
			problems = append(problems, "storage.redis_addr is required for the redis state backend")
		}
	}
	if c.Runtime.ResyncInterval < 0 {
		problems = append(problems, "runtime.resync_interval must not be negative")
	}
	if !c.Runtime.DryRun && c.Broker.BaseUrl == "" {
		problems = append(problems, "broker.base_url is required unless runtime.dry_run is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", exception.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func envSub(v *viper.Viper, key string) string {
	val := v.GetString(key)
	if val == "" {
		return ""
	}

	return envPattern.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
