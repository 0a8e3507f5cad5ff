package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)

	cfg, err := Load("does-not-exist.env")

	req.NoError(err)
	req.Equal("localhost:9090", cfg.Addr)
	req.Equal("chat", cfg.MongoDatabase)
	req.Equal(10*time.Minute, cfg.HistoryTTL)
	req.Equal(64, cfg.SendQueueSize)
	req.Equal(54*time.Second, cfg.Socket().PingPeriod())
}

func TestLoad_FromEnvironment(t *testing.T) {
	req := require.New(t)
	t.Setenv("RELAY_ADDR", "0.0.0.0:3001")
	t.Setenv("WS_SEND_QUEUE_SIZE", "8")
	t.Setenv("TYPING_RATE_PER_SECOND", "2.5")

	cfg, err := Load("does-not-exist.env")

	req.NoError(err)
	req.Equal("0.0.0.0:3001", cfg.Addr)
	req.Equal(8, cfg.SendQueueSize)
	req.InDelta(2.5, cfg.TypingRate, 0.0001)
}

func TestLoad_RejectsInvalidQueueSize(t *testing.T) {
	t.Setenv("WS_SEND_QUEUE_SIZE", "0")

	_, err := Load("does-not-exist.env")

	require.Error(t, err)
}

func TestLoad_RejectsNonPositiveHistoryTTL(t *testing.T) {
	for _, ttl := range []string{"0s", "-1m"} {
		t.Run(ttl, func(t *testing.T) {
			t.Setenv("HISTORY_CACHE_TTL", ttl)

			_, err := Load("does-not-exist.env")

			require.ErrorContains(t, err, "HISTORY_CACHE_TTL")
		})
	}
}
