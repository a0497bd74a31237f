package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zeusync/scenewalk/internal/core/camera"
	"github.com/zeusync/scenewalk/internal/core/inspector"
	"github.com/zeusync/scenewalk/internal/core/scene"
)

func newEntitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List live entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *inspector.Session) error {
				snap, err := s.Snapshot()
				if err != nil {
					return err
				}
				if flags.jsonOut {
					return writeJSON(cmd.OutOrStdout(), snap)
				}
				printSnapshot(cmd.OutOrStdout(), snap, false)
				return nil
			})
		},
	}
}

func newComponentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "components",
		Short: "List live entities with their components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *inspector.Session) error {
				snap, err := s.Snapshot()
				if err != nil {
					return err
				}
				if flags.jsonOut {
					return writeJSON(cmd.OutOrStdout(), snap)
				}
				printSnapshot(cmd.OutOrStdout(), snap, true)
				return nil
			})
		},
	}
}

func newFindCmd() *cobra.Command {
	var (
		name      string
		tag       int
		component string
	)
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find an entity by name, tag or component type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *inspector.Session) error {
				out := cmd.OutOrStdout()
				switch {
				case name != "":
					e, err := s.FindByName(name)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\n", e.Address)
				case tag >= 0:
					e, err := s.FindByTag(uint16(tag))
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\n", e.Address)
				case component != "":
					e, c, err := s.FindEntityWithComponent(component)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "entity %s component %s\n", e.Address, c.Address)
				default:
					return errors.New("one of --name, --tag or --component is required")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "exact entity name")
	cmd.Flags().IntVar(&tag, "tag", -1, "entity tag")
	cmd.Flags().StringVar(&component, "component", "", "component type name")
	return cmd
}

type cameraReport struct {
	Entity    scene.Entity    `json:"entity"`
	Component scene.Component `json:"component"`
	Matrix    camera.Matrix   `json:"matrix"`
	// MatrixKnown is false when the matrix read failed and Matrix is identity.
	MatrixKnown bool         `json:"matrix_known"`
	MatrixError string       `json:"matrix_error,omitempty"`
	Projections []projection `json:"projections,omitempty"`
}

type projection struct {
	Point    camera.Point `json:"point"`
	X        float32      `json:"x"`
	Y        float32      `json:"y"`
	Visible  bool         `json:"visible"`
	OnScreen bool         `json:"on_screen"`
}

func newCameraCmd() *cobra.Command {
	var (
		points   []string
		viewport string
	)
	cmd := &cobra.Command{
		Use:   "camera",
		Short: "Resolve the main camera, print its view matrix and project world points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			world := make([]camera.Point, 0, len(points))
			for _, p := range points {
				pt, err := camera.ParsePoint(p)
				if err != nil {
					return err
				}
				world = append(world, pt)
			}
			width, height, err := parseViewport(viewport)
			if err != nil {
				return err
			}

			return withSession(cmd, func(s *inspector.Session) error {
				e, c, m, err := s.MainCamera()
				if e.Address.IsNull() {
					return err
				}
				report := cameraReport{Entity: e, Component: c, Matrix: m, MatrixKnown: err == nil}
				if err != nil {
					report.MatrixError = err.Error()
				} else {
					for _, pt := range world {
						x, y, ok := camera.WorldToScreen(m, pt, width, height)
						report.Projections = append(report.Projections, projection{
							Point: pt, X: x, Y: y, Visible: ok,
							OnScreen: ok && camera.OnScreen(x, y, width, height),
						})
					}
				}
				if flags.jsonOut {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				printCamera(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&points, "project", nil, "world point x,y,z to project to the screen (repeatable)")
	cmd.Flags().StringVar(&viewport, "viewport", "1920x1080", "screen size WIDTHxHEIGHT for --project")
	return cmd
}

func parseViewport(s string) (width, height float32, err error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("viewport %q: want WIDTHxHEIGHT", s)
	}
	wi, err := strconv.Atoi(w)
	if err != nil || wi <= 0 {
		return 0, 0, fmt.Errorf("viewport %q: bad width", s)
	}
	hi, err := strconv.Atoi(h)
	if err != nil || hi <= 0 {
		return 0, 0, fmt.Errorf("viewport %q: bad height", s)
	}
	return float32(wi), float32(hi), nil
}

func printSnapshot(w io.Writer, snap *inspector.Snapshot, components bool) {
	fmt.Fprintf(w, "registry %s (%s), %d entities, fingerprint %016x\n",
		snap.Registry, snap.Schema, len(snap.Entities), snap.Fingerprint)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "ADDRESS\tTAG\tNAME\tCOMPONENTS")
	for _, e := range snap.Entities {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", e.Address, e.Tag, e.Name, len(e.Components))
		if !components {
			continue
		}
		for _, c := range e.Components {
			typeName := c.TypeName
			if typeName == "" {
				typeName = "-"
			}
			enabled := "?"
			if c.EnabledKnown {
				enabled = fmt.Sprint(c.Enabled)
			}
			fmt.Fprintf(tw, "  %s\t\t%s\tenabled=%s\n", c.Address, typeName, enabled)
		}
	}
}

func printCamera(w io.Writer, r cameraReport) {
	fmt.Fprintf(w, "entity    %s\ncomponent %s\n", r.Entity.Address, r.Component.Address)
	if !r.MatrixKnown {
		fmt.Fprintf(w, "matrix    unknown: %s\n", r.MatrixError)
		return
	}
	fmt.Fprintf(w, "matrix\n%s\n", r.Matrix)
	for _, p := range r.Projections {
		if !p.Visible {
			fmt.Fprintf(w, "project   (%g, %g, %g) behind camera\n", p.Point.X, p.Point.Y, p.Point.Z)
			continue
		}
		fmt.Fprintf(w, "project   (%g, %g, %g) -> (%.1f, %.1f) on_screen=%t\n",
			p.Point.X, p.Point.Y, p.Point.Z, p.X, p.Y, p.OnScreen)
	}
}
