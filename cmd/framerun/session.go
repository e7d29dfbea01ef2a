package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/cwbudde/algo-frame/internal/config"
)

// sessionFlags are shared by every command that runs a processor.
func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML session file"},
		&cli.StringFlag{Name: "processor", Aliases: []string{"p"}, Usage: "Registered processor name (or first argument)"},
		&cli.Float64Flag{Name: "sample-rate", Usage: "Sample rate in Hz"},
		&cli.IntFlag{Name: "block-size", Usage: "Frames per block"},
		&cli.IntFlag{Name: "blocks", Usage: "Number of blocks to run"},
		&cli.Float64Flag{Name: "seconds", Usage: "Run length in seconds (overrides --blocks)"},
		&cli.IntFlag{Name: "inputs", Usage: "Input channel count (0 leaves the input disconnected)"},
		&cli.IntFlag{Name: "outputs", Usage: "Output channel count"},
		&cli.BoolFlag{Name: "process-only", Usage: "Release the node once its input is disconnected"},
		&cli.IntFlag{Name: "stop-after", Usage: "Send \"stop\" after N blocks (0 never)"},
		&cli.StringSliceFlag{Name: "param", Usage: "Constant parameter as name=value (repeatable)"},
	}
}

// sessionFromFlags loads --config if given and applies the flags that were
// set on top of it.
func sessionFromFlags(c *cli.Context) (*config.Session, error) {
	s := config.Default()

	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, cli.Exit(err.Error(), exitUsage)
		}
		s = *loaded
	}

	switch {
	case c.IsSet("processor"):
		s.Processor = c.String("processor")
	case c.Args().Present():
		s.Processor = c.Args().First()
	}

	if c.IsSet("sample-rate") {
		s.SampleRate = c.Float64("sample-rate")
	}
	if c.IsSet("block-size") {
		s.BlockSize = c.Int("block-size")
	}
	if c.IsSet("blocks") {
		s.Blocks = c.Int("blocks")
	}
	if c.IsSet("inputs") {
		s.InputChannels = c.Int("inputs")
	}
	if c.IsSet("outputs") {
		s.OutputChannels = c.Int("outputs")
	}
	if c.IsSet("process-only") {
		s.ProcessOnly = c.Bool("process-only")
	}
	if c.IsSet("stop-after") {
		s.StopAfterBlocks = c.Int("stop-after")
	}

	params, err := parseParams(c.StringSlice("param"))
	if err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}
	if len(params) > 0 && s.Params == nil {
		s.Params = make(map[string]float64, len(params))
	}
	for name, v := range params {
		s.Params[name] = v
	}

	if c.IsSet("seconds") && s.BlockSize > 0 {
		s.Blocks = int(math.Ceil(c.Float64("seconds") * s.SampleRate / float64(s.BlockSize)))
	}

	if err := s.Validate(); err != nil {
		return nil, cli.Exit(err.Error(), exitUsage)
	}

	return &s, nil
}

// parseParams parses name=value pairs.
func parseParams(pairs []string) (map[string]float64, error) {
	params := make(map[string]float64, len(pairs))

	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q: want name=value", pair)
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --param %q: %w", pair, err)
		}

		params[name] = v
	}

	return params, nil
}
