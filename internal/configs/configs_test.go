package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "PORT", "SSH_ADDR", "SSH_HOST_KEY", "HTTP_ADDR",
		"MAILBOX_CAPACITY", "DELIVERY_POLICY", "MAX_MESSAGE_LENGTH", "IDLE_TIMEOUT", "WRITE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.Port)
	require.Equal(t, "0.0.0.0:9999", cfg.ListenAddr())
	require.Equal(t, DeliveryBlock, cfg.DeliveryPolicy)
	require.Equal(t, 16, cfg.MailboxCapacity)
	require.Equal(t, 1000, cfg.MaxMessageLength)
	require.Equal(t, 10*time.Second, cfg.WriteTimeout)
	require.Empty(t, cfg.SSHAddr)
	require.Empty(t, cfg.HTTPAddr)
	require.True(t, cfg.IsDevelopment())
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "4000")
	t.Setenv("SSH_ADDR", ":2222")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("MAILBOX_CAPACITY", "1")
	t.Setenv("DELIVERY_POLICY", " Drop ")
	t.Setenv("IDLE_TIMEOUT", "90s")
	t.Setenv("WRITE_TIMEOUT", "2s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.False(t, cfg.IsDevelopment())
	require.Equal(t, 4000, cfg.Port)
	require.Equal(t, ":2222", cfg.SSHAddr)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, 1, cfg.MailboxCapacity)
	require.Equal(t, DeliveryDrop, cfg.DeliveryPolicy)
	require.Equal(t, 90*time.Second, cfg.IdleTimeout)
	require.Equal(t, 2*time.Second, cfg.WriteTimeout)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"non-numeric port":   {"PORT", "abc"},
		"port out of range":  {"PORT", "70000"},
		"zero capacity":      {"MAILBOX_CAPACITY", "0"},
		"unknown policy":     {"DELIVERY_POLICY", "maybe"},
		"bad duration":       {"IDLE_TIMEOUT", "soon"},
		"negative length":    {"MAX_MESSAGE_LENGTH", "-1"},
		"zero write timeout": {"WRITE_TIMEOUT", "0s"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
