// Command ftserve runs the file transfer interpreter.
//
// It serves its working directory (or --root) on the control port and
// connects back to each requester's data port for list and get.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gonzalop/ftransfer/internal/config"
	"github.com/gonzalop/ftransfer/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ftserve",
		Short:        "Serve a directory over the file transfer protocol.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&cfg.ControlPort, "port", "p", cfg.ControlPort, "control port to listen on")
	flags.IntVar(&cfg.DataPort, "data-port", cfg.DataPort, "port on the requester's host to open data connections to")
	flags.StringVarP(&cfg.RootDir, "root", "r", cfg.RootDir, "directory sessions start in")
	flags.IntVar(&cfg.MaxSessions, "max-sessions", cfg.MaxSessions, "control sessions served at once")
	flags.IntVar(&cfg.MaxLineLength, "max-line", cfg.MaxLineLength, "longest accepted command line")
	flags.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "file transfer chunk size")
	flags.Int64Var(&cfg.BandwidthLimit, "bandwidth", cfg.BandwidthLimit, "combined data throughput limit in bytes per second (0 = unlimited)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cfg.Logger(os.Stderr)

	driver, err := server.NewFSDriver(cfg.RootDir)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(":"+strconv.Itoa(cfg.ControlPort),
		server.WithDriver(driver),
		server.WithLogger(logger),
		server.WithDataPort(cfg.DataPort),
		server.WithMaxSessions(cfg.MaxSessions),
		server.WithMaxLineLength(cfg.MaxLineLength),
		server.WithBufferSize(cfg.BufferSize),
		server.WithBandwidthLimit(cfg.BandwidthLimit),
	)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = srv.Shutdown()
	}()

	logger.Info("serving", "root", driver.RootPath())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, server.ErrServerClosed) {
		return err
	}
	return nil
}
