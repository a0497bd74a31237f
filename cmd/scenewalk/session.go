package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zeusync/scenewalk/internal/config"
	"github.com/zeusync/scenewalk/internal/core/inspector"
	"github.com/zeusync/scenewalk/internal/injector"
)

type globalFlags struct {
	configPath string
	pid        int
	remoteURL  string
	insecure   bool
	bootstrap  string
	registry   string
	schema     string
	workers    int
	layoutFile string
	logLevel   string
	jsonOut    bool
}

var flags globalFlags

func addGlobalFlags(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "YAML config file")
	pf.IntVarP(&flags.pid, "pid", "p", 0, "target process id")
	pf.StringVar(&flags.remoteURL, "remote", "", "ws:// or quic://host:port of a scenewalk memory server")
	pf.BoolVar(&flags.insecure, "insecure", false, "skip quic server certificate verification")
	pf.StringVar(&flags.bootstrap, "bootstrap", "", "address of the cell holding the registry pointer")
	pf.StringVar(&flags.registry, "registry", "", "registry base address")
	pf.StringVar(&flags.schema, "schema", "", "registry schema: auto, legacy or bucketed")
	pf.IntVar(&flags.workers, "workers", 0, "parallel bucket scan workers")
	pf.StringVar(&flags.layoutFile, "layout", "", "YAML layout file overriding built-in offsets")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn, error or silent")
	pf.BoolVar(&flags.jsonOut, "json", false, "print JSON")
}

// loadConfig merges file, environment and explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("pid") {
		cfg.Backend.Kind = config.BackendProcess
		cfg.Backend.PID = flags.pid
	}
	if changed("remote") {
		cfg.Backend.Kind = config.BackendRemote
		cfg.Backend.URL = flags.remoteURL
		if addr, ok := strings.CutPrefix(flags.remoteURL, "quic://"); ok {
			cfg.Backend.Kind = config.BackendQUIC
			cfg.Backend.URL = addr
		}
	}
	if changed("insecure") {
		cfg.Backend.Insecure = flags.insecure
	}
	if changed("bootstrap") {
		cfg.Target.Bootstrap = flags.bootstrap
	}
	if changed("registry") {
		cfg.Target.Registry = flags.registry
	}
	if changed("schema") {
		cfg.Scan.Schema = flags.schema
	}
	if changed("workers") {
		cfg.Scan.Workers = flags.workers
	}
	if changed("layout") {
		cfg.LayoutFile = flags.layoutFile
	}
	if changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	return cfg, cfg.Validate()
}

func withSession(cmd *cobra.Command, fn func(s *inspector.Session) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	session, cleanup, err := injector.InitializeSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(session)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
