package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/ledzpl/budgetchat/internal/configs"
)

// applyFlags overrides cfg from the command line. A single positional argument
// is taken as the TCP port.
func applyFlags(cfg *configs.AppConfig, args []string) error {
	fs := flag.NewFlagSet("budgetchat", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "TCP port for the chat listener")
	fs.StringVar(&cfg.SSHAddr, "ssh-addr", cfg.SSHAddr, "SSH listener address (empty disables)")
	fs.StringVar(&cfg.SSHHostKey, "host-key", cfg.SSHHostKey, "path to the SSH host private key (generated if missing)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP/WebSocket listener address (empty disables)")
	fs.IntVar(&cfg.MailboxCapacity, "mailbox", cfg.MailboxCapacity, "per-user mailbox capacity")
	fs.StringVar(&cfg.DeliveryPolicy, "policy", cfg.DeliveryPolicy, "full-mailbox policy: block or drop")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "disconnect clients that do not drain a write within this long")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "disconnect TCP clients idle this long (0 disables)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		port, err := strconv.Atoi(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("invalid port argument %q: %w", fs.Arg(0), err)
		}
		cfg.Port = port
	default:
		return fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}

	return cfg.Validate()
}
