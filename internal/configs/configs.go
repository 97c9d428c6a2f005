/*
Package configs loads the chat server's runtime settings.

Values come from environment variables with defaults applied for anything unset;
the command line may then override individual fields before Validate is called.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Delivery policies accepted in DELIVERY_POLICY.
const (
	DeliveryBlock = "block"
	DeliveryDrop  = "drop"
)

// AppConfig holds every setting the server needs.
type AppConfig struct {
	// General
	Environment string

	// Transports. Empty SSHAddr or HTTPAddr disables that listener.
	Port       int
	SSHAddr    string
	SSHHostKey string
	HTTPAddr   string

	// Room
	MailboxCapacity  int
	DeliveryPolicy   string
	MaxMessageLength int
	IdleTimeout      time.Duration
	WriteTimeout     time.Duration
}

// Default returns the configuration used when no environment is set.
func Default() *AppConfig {
	return &AppConfig{
		Environment:      "development",
		Port:             9999,
		SSHHostKey:       "configs/ssh_host_ed25519",
		MailboxCapacity:  16,
		DeliveryPolicy:   DeliveryBlock,
		MaxMessageLength: 1000,
		WriteTimeout:     10 * time.Second,
	}
}

// LoadConfig reads the environment on top of Default and validates the result.
func LoadConfig() (*AppConfig, error) {
	cfg := Default()

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Environment = env
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
		}
		cfg.Port = port
	}

	cfg.SSHAddr = strings.TrimSpace(os.Getenv("SSH_ADDR"))
	if v := os.Getenv("SSH_HOST_KEY"); v != "" {
		cfg.SSHHostKey = v
	}
	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))

	if v := os.Getenv("MAILBOX_CAPACITY"); v != "" {
		capacity, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MAILBOX_CAPACITY environment variable: %w", err)
		}
		cfg.MailboxCapacity = capacity
	}

	if v := os.Getenv("DELIVERY_POLICY"); v != "" {
		cfg.DeliveryPolicy = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv("MAX_MESSAGE_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_MESSAGE_LENGTH environment variable: %w", err)
		}
		cfg.MaxMessageLength = n
	}

	if v := os.Getenv("IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid IDLE_TIMEOUT environment variable: %w", err)
		}
		cfg.IdleTimeout = d
	}

	if v := os.Getenv("WRITE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WRITE_TIMEOUT environment variable: %w", err)
		}
		cfg.WriteTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the valid range (1-65535)", c.Port)
	}
	if c.MailboxCapacity < 1 {
		return fmt.Errorf("mailbox capacity must be at least 1, got %d", c.MailboxCapacity)
	}
	switch c.DeliveryPolicy {
	case DeliveryBlock, DeliveryDrop:
	default:
		return fmt.Errorf("unknown delivery policy %q (want %q or %q)", c.DeliveryPolicy, DeliveryBlock, DeliveryDrop)
	}
	if c.MaxMessageLength < 1 {
		return fmt.Errorf("max message length must be positive, got %d", c.MaxMessageLength)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout must not be negative, got %s", c.IdleTimeout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %s", c.WriteTimeout)
	}
	return nil
}

// ListenAddr is the TCP chat listener address.
func (c *AppConfig) ListenAddr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}

// IsDevelopment reports whether the development logger should be used.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}
