package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zeusync/scenewalk/internal/config"
	"github.com/zeusync/scenewalk/internal/core/memory/procmem"
	"github.com/zeusync/scenewalk/internal/core/memory/remote"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
	"github.com/zeusync/scenewalk/internal/injector"
)

type serveFlags struct {
	listen    string
	path      string
	transport string
	certFile  string
	keyFile   string
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a local process's memory read-only over websocket or QUIC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Backend.Kind != config.BackendProcess {
				return fmt.Errorf("serve needs a local process backend, got %q", cfg.Backend.Kind)
			}

			logger, cleanup, err := injector.ProvideLogger(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			proc, err := procmem.Open(cfg.Backend.PID)
			if err != nil {
				return err
			}
			defer proc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := remote.NewServer(proc, remote.WithServerLogger(logger))
			switch f.transport {
			case "websocket", "ws":
				return serveWebsocket(ctx, cmd, srv, f, proc.PID())
			case "quic":
				return serveQUIC(ctx, cmd, srv, f, proc.PID(), logger)
			default:
				return fmt.Errorf("unknown transport %q", f.transport)
			}
		},
	}
	cmd.Flags().StringVar(&f.listen, "listen", "127.0.0.1:7311", "listen address")
	cmd.Flags().StringVar(&f.path, "path", "/memory", "websocket endpoint path")
	cmd.Flags().StringVar(&f.transport, "transport", "websocket", "websocket or quic")
	cmd.Flags().StringVar(&f.certFile, "cert", "", "TLS certificate for quic (self-signed when empty)")
	cmd.Flags().StringVar(&f.keyFile, "key", "", "TLS key for quic")
	return cmd
}

func serveWebsocket(ctx context.Context, cmd *cobra.Command, srv *remote.Server, f serveFlags, pid int) error {
	mux := http.NewServeMux()
	mux.Handle(f.path, srv)
	hs := &http.Server{Addr: f.listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "serving pid %d on ws://%s%s\n", pid, f.listen, f.path)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func serveQUIC(ctx context.Context, cmd *cobra.Command, srv *remote.Server, f serveFlags, pid int, logger log.Log) error {
	var tlsConf *tls.Config
	if f.certFile != "" {
		cert, err := tls.LoadX509KeyPair(f.certFile, f.keyFile)
		if err != nil {
			return fmt.Errorf("load quic certificate: %w", err)
		}
		tlsConf = &tls.Config{Certificates: []tls.Certificate{cert}}
	} else {
		var err error
		if tlsConf, _, err = remote.SelfSignedTLS(); err != nil {
			return err
		}
		logger.Warn("serving quic with a self-signed certificate; clients need backend.insecure")
	}

	ln, err := remote.ListenQUIC(f.listen, tlsConf)
	if err != nil {
		return err
	}
	defer ln.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "serving pid %d on quic://%s\n", pid, ln.Addr())
	return srv.ServeQUIC(ctx, ln)
}
