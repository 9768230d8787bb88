// Command ftclient is the interactive requester.
//
//	ftclient <server hostname>
//
// It reads commands from standard input, prints the interpreter's replies
// and saves downloaded files in its working directory (or --download-dir).
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gonzalop/ftransfer"
	"github.com/gonzalop/ftransfer/internal/config"
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
	var (
		timeout  time.Duration
		progress bool
	)

	cmd := &cobra.Command{
		Use:          "ftclient <server hostname>",
		Short:        "Browse and download files from an ftserve interpreter.",
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "Usage:\n\t%s <server hostname>\n", cmd.Root().Name())
				return nil
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("progress") {
				progress = term.IsTerminal(int(os.Stderr.Fd()))
			}
			return run(cmd.Context(), cfg, args[0], timeout, progress)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&cfg.ControlPort, "port", "p", cfg.ControlPort, "interpreter control port")
	flags.IntVar(&cfg.DataPort, "data-port", cfg.DataPort, "local port to accept data connections on")
	flags.StringVarP(&cfg.DownloadDir, "download-dir", "d", cfg.DownloadDir, "directory downloaded files are saved in")
	flags.IntVar(&cfg.MaxLineLength, "max-line", cfg.MaxLineLength, "longest accepted interpreter message")
	flags.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "file transfer chunk size")
	flags.DurationVar(&timeout, "timeout", 0, "control connection I/O timeout (0 = none)")
	flags.BoolVar(&progress, "progress", false, "show download progress on stderr (default: when stderr is a terminal)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	return cmd
}

func run(parent context.Context, cfg *config.Config, host string, timeout time.Duration, progress bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []ftransfer.Option{
		ftransfer.WithLogger(cfg.Logger(os.Stderr)),
		ftransfer.WithDataPort(cfg.DataPort),
		ftransfer.WithDownloadDir(cfg.DownloadDir),
		ftransfer.WithMaxMessageLength(cfg.MaxLineLength),
		ftransfer.WithBufferSize(cfg.BufferSize),
		ftransfer.WithTimeout(timeout),
	}
	var out io.Writer = os.Stdout
	if progress {
		pl := &progressLine{out: os.Stdout}
		opts = append(opts, ftransfer.WithProgress(pl.update))
		out = pl
	}

	addr := net.JoinHostPort(host, strconv.Itoa(cfg.ControlPort))
	client, err := ftransfer.Dial(ctx, addr, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Unable to open control connection with specified host")
		return err
	}

	return client.Run(ctx, os.Stdin, out)
}

// progressLine shows the running byte count of a download on stderr and
// erases it before anything else is printed.
type progressLine struct {
	out   io.Writer
	dirty atomic.Bool
}

func (p *progressLine) update(n int64) {
	fmt.Fprintf(os.Stderr, "\rreceived %d bytes\x1b[K", n)
	p.dirty.Store(true)
}

func (p *progressLine) Write(b []byte) (int, error) {
	if p.dirty.Swap(false) {
		fmt.Fprint(os.Stderr, "\r\x1b[K")
	}
	return p.out.Write(b)
}
