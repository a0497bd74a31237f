package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeusync/scenewalk/internal/core/inspector"
	"github.com/zeusync/scenewalk/internal/core/layout"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
	"github.com/zeusync/scenewalk/internal/core/registry"
	"github.com/zeusync/scenewalk/internal/core/scenetest"
)

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Inspect a built-in synthetic scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			level, err := log.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			logger, err := log.New(level, log.Options{Development: true})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			demo := scenetest.NewDemo(layout.Default())
			session, err := inspector.New(demo.Image, demo.Layout,
				inspector.Target{Bootstrap: demo.Bootstrap},
				inspector.Options{Schema: registry.SchemaAuto, Workers: max(cfg.Scan.Workers, 1), Logger: logger})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			snap, err := session.Snapshot()
			if err != nil {
				return err
			}
			if flags.jsonOut {
				return writeJSON(out, snap)
			}
			printSnapshot(out, snap, true)

			e, c, m, err := session.MainCamera()
			if err != nil {
				return fmt.Errorf("main camera: %w", err)
			}
			fmt.Fprintln(out)
			printCamera(out, cameraReport{Entity: e, Component: c, Matrix: m, MatrixKnown: true})
			return nil
		},
	}
}
