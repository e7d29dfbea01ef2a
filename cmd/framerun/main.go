// Command framerun hosts the demo frame processors outside a browser.
//
// Usage:
//
//	framerun [global flags] <command> [flags] [processor]
//
// Command flags must precede the processor name.
//
// Commands:
//
//	list    print registered processors and their parameters
//	render  render offline, print a level summary, optionally write a WAV file
//	play    play live on the default audio device until done or interrupted
//	serve   run one node over the length-prefixed msgpack stdio protocol
//
// Examples:
//
//	framerun list
//	framerun render --param frequency=1000 --seconds 2 --out sine.wav sine
//	framerun render --config session.yaml --stop-after 100
//	framerun --log-level debug play --param decay=2 pluck
//
// Exit codes:
//   - 0: success
//   - 1: processing or I/O failure
//   - 2: invalid flags or session config
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-frame/internal/log"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

const loggerKey = "logger"

func main() {
	app := newApp()
	app.ExitErrHandler = exitErrHandler

	if err := app.Run(os.Args); err != nil {
		os.Exit(exitFailure)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "framerun",
		Usage: "Run block-to-frame audio processors offline, live or over stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: log.FormatConsole,
				Usage: "Log format: console, json",
			},
		},
		Before: func(c *cli.Context) error {
			logger, err := log.New(log.Config{
				Level:  c.String("log-level"),
				Format: c.String("log-format"),
				Output: c.App.ErrWriter,
			})
			if err != nil {
				return cli.Exit(err.Error(), exitUsage)
			}

			if c.App.Metadata == nil {
				c.App.Metadata = map[string]any{}
			}
			c.App.Metadata[loggerKey] = logger

			return nil
		},
		After: func(c *cli.Context) error {
			_ = logger(c).Sync()
			return nil
		},
		Commands: []*cli.Command{
			listCommand(),
			renderCommand(),
			playCommand(),
			serveCommand(),
		},
	}
}

func logger(c *cli.Context) *zap.Logger {
	if l, ok := c.App.Metadata[loggerKey].(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// exitErrHandler preserves exit codes from cli.Exit.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitFailure)
}
