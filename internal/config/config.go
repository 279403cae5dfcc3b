package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`

	Presence   PresenceConfig `mapstructure:"presence"`
	Ledger     LedgerConfig   `mapstructure:"ledger"`
	Match      MatchConfig    `mapstructure:"match"`
	Sweep      SweepConfig    `mapstructure:"sweep"`
	Next       NextConfig     `mapstructure:"next"`
	ICEServers []ICEServer    `mapstructure:"ice_servers"`
}

type PresenceConfig struct {
	Driver    string `mapstructure:"driver"`
	RedisURL  string `mapstructure:"redis_url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type LedgerConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type MatchConfig struct {
	Delay    time.Duration `mapstructure:"delay"`
	Interval time.Duration `mapstructure:"interval"`
}

type SweepConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	OrphanGrace time.Duration `mapstructure:"orphan_grace"`
}

// NextConfig bounds request-next-user to Limit requests per Interval.
type NextConfig struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

// DefaultICEServers is the public STUN/TURN list handed to clients when the
// config file names none.
func DefaultICEServers() []ICEServer {
	return []ICEServer{
		{URLs: []string{"stun:stun.l.google.com:19302"}},
		{URLs: []string{"stun:stun1.l.google.com:19302"}},
		{URLs: []string{"stun:stun.relay.metered.ca:80"}},
		{URLs: []string{"turn:relay.metered.ca:80"}, Username: "openrelayproject", Credential: "openrelayproject"},
		{URLs: []string{"turn:relay.metered.ca:443"}, Username: "openrelayproject", Credential: "openrelayproject"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 64)

	v.SetDefault("presence.driver", DriverMemory)
	v.SetDefault("presence.redis_url", "redis://localhost:6379/0")
	v.SetDefault("presence.key_prefix", "pairline:presence:")

	v.SetDefault("ledger.driver", DriverMemory)
	v.SetDefault("ledger.sqlite_path", "data/pairline.db")

	v.SetDefault("match.delay", "1s")
	v.SetDefault("match.interval", "10s")
	v.SetDefault("sweep.interval", "30s")
	v.SetDefault("sweep.orphan_grace", "10s")
	v.SetDefault("next.limit", 5)
	v.SetDefault("next.interval", "10s")
}

// Load reads config/config.<CONFIG_ENV>.yaml, or the file named by --config,
// on top of the defaults. PAIRLINE_* variables override both, with dots in
// key names replaced by underscores (PAIRLINE_PRESENCE_DRIVER).
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("pairline", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	fileName := *configFile
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("PAIRLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if *configFile != "" {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.ICEServers) == 0 {
		cfg.ICEServers = DefaultICEServers()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Presence.Driver {
	case DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("presence.driver %q: want %s or %s", c.Presence.Driver, DriverRedis, DriverMemory)
	}
	switch c.Ledger.Driver {
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("ledger.driver %q: want %s or %s", c.Ledger.Driver, DriverSQLite, DriverMemory)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Next.Limit <= 0 || c.Next.Interval <= 0 {
		return fmt.Errorf("next.limit and next.interval must be positive")
	}
	return nil
}
