package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"

	"github.com/ledzpl/budgetchat/internal/chat"
	"github.com/ledzpl/budgetchat/internal/configs"
	"github.com/ledzpl/budgetchat/internal/httpapi"
	"github.com/ledzpl/budgetchat/internal/pkg/logx"
	"github.com/ledzpl/budgetchat/internal/transport"
	"github.com/ledzpl/budgetchat/pkg/sshserver"
	"github.com/ledzpl/budgetchat/pkg/tcpserver"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(2)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("ssh_addr", cfg.SSHAddr).
		Str("http_addr", cfg.HTTPAddr).
		Int("mailbox_capacity", cfg.MailboxCapacity).
		Str("delivery_policy", cfg.DeliveryPolicy).
		Dur("write_timeout", cfg.WriteTimeout).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logx.Fatal(err, "server stopped with error")
	}
	logx.Info("server stopped")
}

func run(ctx context.Context, cfg *configs.AppConfig) error {
	room := chat.NewRoom(
		chat.WithMailboxCapacity(cfg.MailboxCapacity),
		chat.WithDeliveryPolicy(deliveryPolicy(cfg.DeliveryPolicy)),
	)
	defer room.Close()

	sessionOpts := []chat.SessionOption{chat.WithMaxMessageLength(cfg.MaxMessageLength)}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		srv := tcpserver.New(cfg.ListenAddr(), logx.Component("tcp"))
		return ignoreCanceled(srv.ListenAndServe(gctx, func(ctx context.Context, conn net.Conn) {
			stream := transport.NewStreamConn(conn,
				transport.WithIdleTimeout(cfg.IdleTimeout),
				transport.WithWriteTimeout(cfg.WriteTimeout),
			)
			opts := append([]chat.SessionOption{chat.WithRemoteAddr(conn.RemoteAddr().String())}, sessionOpts...)
			serveSession(ctx, chat.NewSession(room, stream, opts...))
		}))
	})

	if cfg.SSHAddr != "" {
		signer, err := sshserver.LoadOrGenerateSigner(cfg.SSHHostKey)
		if err != nil {
			return fmt.Errorf("prepare host key: %w", err)
		}

		g.Go(func() error {
			srv := sshserver.New(cfg.SSHAddr, signer, logx.Component("ssh"))
			return ignoreCanceled(srv.ListenAndServe(gctx, func(ctx context.Context, conn *ssh.ServerConn, channel ssh.Channel, requests <-chan *ssh.Request) {
				defer channel.Close()

				if err := transport.AcceptShell(requests); err != nil {
					return
				}
				opts := append([]chat.SessionOption{chat.WithRemoteAddr(conn.RemoteAddr().String())}, sessionOpts...)
				stream := transport.NewStreamConn(channel, transport.WithWriteTimeout(cfg.WriteTimeout))
				serveSession(ctx, chat.NewSession(room, stream, opts...))
			}))
		})
	}

	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: httpapi.Router(httpapi.Deps{
				Room:           room,
				SessionOptions: sessionOpts,
				MaxFrameBytes:  int64(cfg.MaxMessageLength) * 4,
				AllowAnyOrigin: cfg.IsDevelopment(),
				Context:        gctx,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logx.Info("http listening", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func serveSession(ctx context.Context, session *chat.Session) {
	if err := session.Run(ctx); err != nil {
		logx.Info("session ended", "session_id", session.ID(), "reason", err.Error())
	}
}

func deliveryPolicy(name string) chat.DeliveryPolicy {
	if name == configs.DeliveryDrop {
		return chat.PolicyDrop
	}
	return chat.PolicyBlock
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
