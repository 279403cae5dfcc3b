package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("CONFIG_ENV", "does-not-exist")

	cfg, err := Load(nil)

	req.NoError(err)
	req.Equal(8080, cfg.Port)
	req.Equal(DriverMemory, cfg.Presence.Driver)
	req.Equal(DriverMemory, cfg.Ledger.Driver)
	req.Equal(time.Second, cfg.Match.Delay)
	req.Equal(10*time.Second, cfg.Match.Interval)
	req.Equal(30*time.Second, cfg.Sweep.Interval)
	req.Equal(54*time.Second, cfg.PingPeriod)
	req.Equal(5, cfg.Next.Limit)
	req.Equal(DefaultICEServers(), cfg.ICEServers)
}

func TestLoad_FileFlagAndEnv(t *testing.T) {
	req := require.New(t)
	path := filepath.Join(t.TempDir(), "pairline.yaml")
	req.NoError(os.WriteFile(path, []byte(`
port: 9090
presence:
  driver: redis
  redis_url: redis://cache:6379/2
ledger:
  driver: sqlite
  sqlite_path: /tmp/calls.db
match:
  delay: 250ms
ice_servers:
  - urls: ["stun:stun.example.com:3478"]
  - urls: ["turn:turn.example.com:3478"]
    username: alice
    credential: secret
`), 0o644))

	// Given an environment override on a nested key
	t.Setenv("PAIRLINE_SWEEP_INTERVAL", "5s")

	cfg, err := Load([]string{"--config", path})

	req.NoError(err)
	req.Equal(9090, cfg.Port)
	req.Equal(DriverRedis, cfg.Presence.Driver)
	req.Equal("redis://cache:6379/2", cfg.Presence.RedisURL)
	req.Equal("pairline:presence:", cfg.Presence.KeyPrefix)
	req.Equal(DriverSQLite, cfg.Ledger.Driver)
	req.Equal(250*time.Millisecond, cfg.Match.Delay)
	req.Equal(5*time.Second, cfg.Sweep.Interval)
	req.Len(cfg.ICEServers, 2)
	req.Equal("alice", cfg.ICEServers[1].Username)
	req.Equal([]string{"turn:turn.example.com:3478"}, cfg.ICEServers[1].URLs)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("should fail on a missing explicit file", func(t *testing.T) {
		_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")})
		require.Error(t, err)
	})

	t.Run("should fail on an unknown driver", func(t *testing.T) {
		t.Setenv("CONFIG_ENV", "does-not-exist")
		t.Setenv("PAIRLINE_LEDGER_DRIVER", "postgres")

		_, err := Load(nil)

		require.ErrorContains(t, err, "ledger.driver")
	})
}
