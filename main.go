// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
	"periph.io/x/periph/conn/i2c"

	"github.com/usedbytes/mission/base"
	"github.com/usedbytes/mission/config"
	"github.com/usedbytes/mission/events"
	"github.com/usedbytes/mission/props"
)

type options struct {
	settings string
	verbose bool
	quiet bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	v := config.NewViper()

	cmd := &cobra.Command{
		Use: "mission",
		Short: "Mission task scheduler",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.BindFlags(v, cmd.Flags())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.settings, "config", "c", "", "settings file")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "warnings and errors only")
	pf.StringP("mission", "m", "", "mission file (TOML)")
	pf.String("log-file", "", "rotating log file")

	cmd.AddCommand(newRunCmd(opts, v), newCheckCmd(opts, v))

	return cmd
}

func newRunCmd(opts *options, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use: "run",
		Short: "Run the mission",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.Load(v, opts.settings)
			if err != nil {
				return err
			}

			log, closeLog := newLogger(opts.verbose, opts.quiet, s.LogFile)
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = run(ctx, s, log)
			if err != nil {
				log.Error().Err(err).Msg("mission failed")
			}
			return err
		},
	}

	f := cmd.Flags()
	f.Duration("period", 0, "control loop period")
	f.String("event-log", "", "mission event log file")
	f.String("telemetry-addr", "", "telemetry listen address")
	f.String("i2c-bus", "", "I2C bus for the servo board")
	f.Uint16("servo-addr", 0, "servo board I2C address")
	f.Duration("servo-timeout", 0, "halt the servos when not refreshed for this long")

	return cmd
}

func newCheckCmd(opts *options, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use: "check",
		Short: "Validate the mission and print the initial store",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.Load(v, opts.settings)
			if err != nil {
				return err
			}

			log, closeLog := newLogger(opts.verbose, opts.quiet, "")
			defer closeLog()

			m, err := config.LoadMission(s.Mission)
			if err != nil {
				return err
			}

			tree := props.NewTree()
			if _, err := buildPlanner(m, tree, nil, log); err != nil {
				return err
			}

			out, err := yaml.Marshal(tree.Nested())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "# %s: %d tasks\n", s.Mission, len(m.Tasks))
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func run(ctx context.Context, s *config.Settings, log zerolog.Logger) error {
	m, err := config.LoadMission(s.Mission)
	if err != nil {
		return err
	}

	flightID := uuid.NewString()
	log = log.With().Str("flight_id", flightID).Logger()

	tree := props.NewTree()
	tree.Node("/task").SetString("flight_id", flightID)

	var ev *events.Log
	if s.EventLog != "" {
		ev, err = events.Open(s.EventLog, flightID)
		if err != nil {
			return err
		}
		defer ev.Close()
	}

	planner, err := buildPlanner(m, tree, ev, log)
	if err != nil {
		return err
	}

	var bus i2c.Bus
	if s.I2CBus != "" {
		b, err := base.OpenBus(s.I2CBus)
		if err != nil {
			return err
		}
		defer b.Close()
		bus = b
	}
	platform := base.NewPlatform(bus, s.ServoAddr, s.ServoTimeout, tree, log)
	defer platform.Close()

	g, ctx := errgroup.WithContext(ctx)

	if s.TelemetryAddr != "" {
		srv, err := newTelemServer(tree)
		if err != nil {
			return err
		}

		l, err := net.Listen("tcp", s.TelemetryAddr)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		log.Info().Str("addr", l.Addr().String()).Msg("telemetry listening")

		g.Go(func() error {
			return serveTelem(ctx, l, srv)
		})
	}

	loop := NewLoop(s.Period, planner, platform, log)
	g.Go(func() error {
		return loop.Run(ctx)
	})

	log.Info().Str("mission", s.Mission).Int("tasks", len(m.Tasks)).Msg("mission started")
	ev.Log("mission", "started")

	err = g.Wait()
	ev.Log("mission", "stopped")

	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
