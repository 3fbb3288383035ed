package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"braces.dev/errtrace"
	"github.com/spf13/cobra"

	"github.com/tmnsur/jsip-sub002/sip"
)

type parseOptions struct {
	chunkSize int
	full      bool
}

func newParseCmd(a *app) *cobra.Command {
	var popts parseOptions
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Frame and parse SIP messages from a capture file",
		Long: `Frame and parse a byte stream of SIP messages as if it was received over TCP.
The stream is read from the file or from the standard input when the file is omitted or "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return errtrace.Wrap(err)
			}

			in, src := cmd.InOrStdin(), "stdin"
			if len(args) > 0 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return errtrace.Wrap(err)
				}
				defer f.Close()
				in, src = f, args[0]
			}
			return errtrace.Wrap(runParse(cmd.Context(), cfg, in, src, cmd.OutOrStdout(), popts))
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&popts.chunkSize, "chunk-size", 0, "feed the input in chunks of the size, 0 reads it as a stream")
	fs.BoolVar(&popts.full, "full", false, "print whole messages instead of start lines")
	addIngestFlags(fs)
	return cmd
}

func runParse(ctx context.Context, cfg *config, in io.Reader, src string, out io.Writer, popts parseOptions) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return errtrace.Wrap(err)
	}
	opts := cfg.Ingest.connOptions()
	opts.Log = logger
	printer := &msgPrinter{w: out, full: popts.full}

	if popts.chunkSize > 0 {
		err = parseChunks(ctx, in, src, printer, opts, popts.chunkSize)
	} else {
		err = parseStream(ctx, in, src, printer, opts)
	}
	fmt.Fprintln(out, printer.summary())
	return errtrace.Wrap(err)
}

func parseStream(ctx context.Context, in io.Reader, src string, printer *msgPrinter, opts *sip.ConnOptions) error {
	disp := sip.NewDispatcher(ctx, printer, &sip.DispatcherOptions{
		MutexTimeout:          opts.MutexTimeout,
		MalformedHeaderPolicy: opts.MalformedHeaderPolicy,
		Log:                   opts.Log,
	})
	defer disp.Close()

	f := sip.NewFramer(sip.FrameHandlerFuncs{OnMessageFunc: disp.Dispatch}, &sip.FramerOptions{
		MaxMessageSize:    opts.MaxMessageSize,
		StarvationTimeout: -1,
		Source:            src,
		Log:               opts.Log,
	})
	return errtrace.Wrap(f.ReadFrom(ctx, in))
}

func parseChunks(ctx context.Context, in io.Reader, src string, printer *msgPrinter, opts *sip.ConnOptions, size int) error {
	sess := sip.NewChunkSession(ctx, io.Discard, src, printer, opts)
	defer sess.Close()

	buf := make([]byte, size)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if _, werr := sess.Write(buf[:n]); werr != nil {
				return errtrace.Wrap(werr)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errtrace.Wrap(err)
		}
	}
}
