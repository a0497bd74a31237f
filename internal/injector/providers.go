package injector

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/google/wire"

	"github.com/zeusync/scenewalk/internal/config"
	"github.com/zeusync/scenewalk/internal/core/camera"
	"github.com/zeusync/scenewalk/internal/core/inspector"
	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/memory/procmem"
	"github.com/zeusync/scenewalk/internal/core/memory/remote"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
	"github.com/zeusync/scenewalk/internal/core/registry"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideLayout,
	ProvideReader,
	ProvideTarget,
	ProvideOptions,
	ProvideSession,
)

func ProvideLogger(cfg config.Config) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.New(level, log.Options{Development: cfg.Log.Development})
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideLayout(cfg config.Config) (*layout.Layout, error) {
	if cfg.LayoutFile == "" {
		return layout.Default(), nil
	}
	return layout.LoadFile(cfg.LayoutFile)
}

// ProvideReader opens the configured backend.
func ProvideReader(ctx context.Context, cfg config.Config, logger *log.Logger) (memory.Reader, func(), error) {
	switch cfg.Backend.Kind {
	case config.BackendRemote:
		client, err := remote.Dial(ctx, cfg.Backend.URL,
			remote.WithTimeout(cfg.Backend.Timeout), remote.WithClientLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	case config.BackendQUIC:
		tlsConf, err := clientTLS(cfg.Backend)
		if err != nil {
			return nil, nil, err
		}
		client, err := remote.DialQUIC(ctx, cfg.Backend.URL, tlsConf,
			remote.WithTimeout(cfg.Backend.Timeout), remote.WithClientLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	case config.BackendProcess:
		proc, err := procmem.Open(cfg.Backend.PID)
		if err != nil {
			return nil, nil, err
		}
		return proc, func() { _ = proc.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown backend kind %q", config.ErrInvalidConfig, cfg.Backend.Kind)
	}
}

func clientTLS(b config.BackendConfig) (*tls.Config, error) {
	conf := &tls.Config{InsecureSkipVerify: b.Insecure}
	if b.CAFile == "" {
		return conf, nil
	}
	pem, err := os.ReadFile(b.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read backend.ca_file: %w", err)
	}
	conf.RootCAs = x509.NewCertPool()
	if !conf.RootCAs.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: backend.ca_file holds no PEM certificates", config.ErrInvalidConfig)
	}
	return conf, nil
}

func ProvideTarget(cfg config.Config) (inspector.Target, error) {
	bootstrap, reg, err := cfg.Target.Addresses()
	if err != nil {
		return inspector.Target{}, err
	}
	return inspector.Target{Bootstrap: bootstrap, Registry: reg}, nil
}

func ProvideOptions(cfg config.Config, logger *log.Logger) (inspector.Options, error) {
	schema, err := registry.ParseSchema(cfg.Scan.Schema)
	if err != nil {
		return inspector.Options{}, err
	}
	managed, err := registry.ParseManagedPolicy(cfg.Scan.ManagedPolicy)
	if err != nil {
		return inspector.Options{}, err
	}
	enabled, err := camera.ParseEnabledPolicy(cfg.Scan.EnabledPolicy)
	if err != nil {
		return inspector.Options{}, err
	}
	return inspector.Options{
		Schema:        schema,
		Workers:       cfg.Scan.Workers,
		ManagedPolicy: managed,
		EnabledPolicy: enabled,
		BucketTypes:   cfg.Scan.BucketTypes,
		Logger:        logger,
	}, nil
}

func ProvideSession(mem memory.Reader, lay *layout.Layout, target inspector.Target, opts inspector.Options) (*inspector.Session, error) {
	return inspector.New(mem, lay, target, opts)
}
