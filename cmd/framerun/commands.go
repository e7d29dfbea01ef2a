package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-frame/dsp/frame"
	"github.com/cwbudde/algo-frame/internal/analysis"
	"github.com/cwbudde/algo-frame/internal/audio"
	"github.com/cwbudde/algo-frame/internal/audio/playback"
	"github.com/cwbudde/algo-frame/internal/config"
	"github.com/cwbudde/algo-frame/internal/demo"
	"github.com/cwbudde/algo-frame/internal/ipc"
	"github.com/cwbudde/algo-frame/internal/render"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List registered processors and their parameters",
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	reg, err := demo.NewRegistry()
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROCESSOR\tKIND\tPARAMETER\tMIN\tMAX\tDEFAULT\tRATE")

	for _, name := range reg.Names() {
		def := reg.Lookup(name)

		descriptors := append([]frame.ParameterDescriptor(nil), def.ParameterDescriptors()...)
		sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })

		if len(descriptors) == 0 {
			fmt.Fprintf(tw, "%s\t%s\t-\t\t\t\t\n", name, def.Kind())
			continue
		}

		for _, d := range descriptors {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%g\t%g\t%s\n",
				name, def.Kind(), d.Name, d.MinValue, d.MaxValue, d.DefaultValue, d.AutomationRate)
		}
	}

	return tw.Flush()
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render a processor offline and print a level summary",
		ArgsUsage: "[processor]",
		Flags: append(sessionFlags(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write the result as a 32-bit float WAV file"},
		),
		Action: renderAction,
	}
}

func renderAction(c *cli.Context) error {
	s, err := sessionFromFlags(c)
	if err != nil {
		return err
	}

	log := logger(c).With(zap.String("processor", s.Processor))

	reg, err := demo.NewRegistry()
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	nodePort, hostPort := frame.NewMessageChannel(8)

	node, err := render.NewNode(reg, s, nodePort, frame.WithLogger(log))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	res, err := render.Run(ctx, node, s, render.WithLogger(log))
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	drainMessages(hostPort, log)

	if err := printSummary(c.App.Writer, res); err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	if path := c.String("out"); path != "" {
		if err := writeWAV(path, res); err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
		log.Info("wrote wav", zap.String("path", path), zap.Int("frames", res.Frames()))
	}

	return nil
}

func printSummary(w io.Writer, res *render.Result) error {
	state := "running"
	switch {
	case res.Finished:
		state = "finished"
	case res.Stopped:
		state = "stopped"
	case res.Released:
		state = "released"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "blocks:\t%d\n", res.Blocks)
	fmt.Fprintf(tw, "frames:\t%d\n", res.Frames())
	fmt.Fprintf(tw, "channels:\t%d\n", len(res.Channels))
	fmt.Fprintf(tw, "state:\t%s\n", state)

	if len(res.Channels) > 0 {
		sum, err := analysis.Analyze(res.Mixdown(), res.SampleRate)
		if err != nil {
			return err
		}

		fmt.Fprintf(tw, "peak:\t%.2f dBFS\n", sum.PeakDB)
		fmt.Fprintf(tw, "rms:\t%.2f dBFS\n", sum.RMSDB)
		fmt.Fprintf(tw, "dominant:\t%.1f Hz\n", sum.Frequency)
	}

	return tw.Flush()
}

func writeWAV(path string, res *render.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return res.WriteWAV(f)
}

// drainMessages logs whatever the node posted during an offline render.
func drainMessages(port *frame.MessagePort, log *zap.Logger) {
	for {
		select {
		case msg := <-port.Messages():
			log.Info("node message", zap.Any("message", msg))
		default:
			return
		}
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Play a processor on the default audio device",
		ArgsUsage: "[processor]",
		Flags:     sessionFlags(),
		Action:    playAction,
	}
}

func playAction(c *cli.Context) error {
	s, err := sessionFromFlags(c)
	if err != nil {
		return err
	}

	log := logger(c).With(zap.String("processor", s.Processor))

	reg, err := demo.NewRegistry()
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	node, err := render.NewNode(reg, s, nil, frame.WithLogger(log))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	src := audio.NewSource(node, s.OutputChannels, s.BlockSize, render.NewAutomation(s).Block)

	player, err := playback.New(int(s.SampleRate), src)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}
	defer player.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	err = play(ctx, node, src, player, sessionLength(s), log)
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	return nil
}

// play waits until the source has drained, sending "stop" on interrupt or
// once length has elapsed.
func play(ctx context.Context, node *frame.Adapter, src *audio.Source, player *playback.Player, length time.Duration, log *zap.Logger) error {
	player.Play()
	log.Info("playing", zap.Duration("length", length))

	limit := time.NewTimer(length)
	defer limit.Stop()

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			node.HandleMessage(frame.MessageStop)
			log.Info("interrupted")
			return src.Err()
		case <-limit.C:
			node.HandleMessage(frame.MessageStop)
		case <-tick.C:
			if src.Finished() && !player.IsPlaying() {
				log.Info("playback ended", zap.Duration("position", player.Position()))
				return src.Err()
			}
		}
	}
}

func sessionLength(s *config.Session) time.Duration {
	seconds := float64(s.Frames()) / s.SampleRate
	if s.StopAfterBlocks > 0 {
		seconds = float64(s.StopAfterBlocks*s.BlockSize) / s.SampleRate
	}

	return time.Duration(seconds * float64(time.Second))
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Run one processor over the stdio frame protocol",
		ArgsUsage: "[processor]",
		Flags:     sessionFlags(),
		Action:    serveAction,
	}
}

func serveAction(c *cli.Context) error {
	s, err := sessionFromFlags(c)
	if err != nil {
		return err
	}

	log := logger(c).With(zap.String("processor", s.Processor))

	reg, err := demo.NewRegistry()
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	nodePort, hostPort := frame.NewMessageChannel(64)

	node, err := render.NewNode(reg, s, nodePort, frame.WithLogger(log))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	srv := ipc.NewServer(node, hostPort.Messages(), c.App.Reader, c.App.Writer, log)
	if err := srv.Serve(ctx); err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	return nil
}
