package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	depthcount "github.com/swdee/go-depthcount"
	"github.com/swdee/go-depthcount/console"
	"github.com/swdee/go-depthcount/render"
	"github.com/swdee/go-depthcount/server"
	"github.com/swdee/go-depthcount/sink"
	"github.com/swdee/go-depthcount/source"
	"github.com/swdee/go-depthcount/store"
)

var (
	flagConfig   string
	flagSource   string
	flagDemo     bool
	flagLoop     bool
	flagDisplay  bool
	flagRecord   string
	flagHTTP     string
	flagConsole  bool
	flagJournal  string
	flagCores    []int
	flagLogLevel string
	flagFont     string
	flagFontSize float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "depthcount",
		Short: "Count people crossing a gate line under an overhead depth camera",
		Long: `depthcount tracks people walking under an overhead depth camera and counts
them in (moving up the frame) or out (moving down the frame) as they cross
the horizontal midline.

Frames are read from a recorded session directory with --source, or from a
scripted synthetic scene with --demo.`,
		SilenceUsage: true,
		RunE:         run,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&flagConfig, "config", "", "JSON configuration file")
	flags.StringVar(&flagSource, "source", "", "Recorded session directory of color/depth PNG pairs")
	flags.BoolVar(&flagDemo, "demo", false, "Use the synthetic demo scene as the frame source")
	flags.BoolVar(&flagLoop, "loop", false, "Replay the recorded session continuously")
	flags.BoolVar(&flagDisplay, "display", false, "Show the color and track streams in windows")
	flags.StringVar(&flagRecord, "record", "", "Directory to record color.avi and track.avi into")
	flags.StringVar(&flagHTTP, "http", "", "Address to serve the control API and MJPEG stream on, eg: :8080")
	flags.BoolVar(&flagConsole, "console", false, "Show the terminal operator console")
	flags.StringVar(&flagJournal, "journal", "", "SQLite database to journal crossings to")
	flags.IntSliceVar(&flagCores, "cores", nil, "CPU cores to pin the pipeline worker to, eg: 4,5")
	flags.StringVar(&flagLogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	flags.StringVar(&flagFont, "font", "", "TTF/OTF font file for the count banner")
	flags.Float64Var(&flagFontSize, "font-size", 14, "Count banner font size in points")

	rootCmd.AddCommand(synthCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(flagLogLevel)

	if err != nil {
		return nil, err
	}

	log.SetLevel(level)
	return log, nil
}

func loadConfig(log logrus.FieldLogger) (*depthcount.Config, error) {

	cfg := depthcount.DefaultConfig(log)

	if flagConfig != "" {
		var err error
		cfg, err = depthcount.LoadConfig(flagConfig, log)

		if err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	}

	if len(flagCores) == 0 {
		return cfg, nil
	}

	p := cfg.Snapshot()
	p.WorkerCores = flagCores

	return depthcount.NewConfig(p, log)
}

func newSource(p depthcount.Params, log logrus.FieldLogger) (source.FrameSource, error) {

	switch {
	case flagDemo:
		return source.NewSynthetic(source.DemoScript(p.Width, p.Height),
			source.WithSyntheticLogger(log)), nil

	case flagSource != "":
		return source.NewSequence(flagSource,
			source.WithLoop(flagLoop),
			source.WithDepthScale(p.DepthScale),
			source.WithSequenceLogger(log)), nil
	}

	return nil, errors.New("one of --source or --demo is required")
}

func run(cmd *cobra.Command, args []string) error {

	log, err := newLogger()

	if err != nil {
		return err
	}

	cfg, err := loadConfig(log)

	if err != nil {
		return err
	}

	params := cfg.Snapshot()

	src, err := newSource(params, log)

	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// pipeline is set before any sink can deliver a key press
	var pipeline *depthcount.Pipeline

	var sinks []sink.Sink

	if flagDisplay {
		sinks = append(sinks, sink.NewWindow(func(key int) {
			switch key {
			case 'q', 27:
				cancel()
			case 'r':
				pipeline.ResetCounters()
			}
		}))
	}

	if flagRecord != "" {
		rec, err := sink.NewRecorder(flagRecord, params.Width, params.Height, params.FPS)

		if err != nil {
			return err
		}

		sinks = append(sinks, rec)
	}

	var hub *sink.MJPEG

	if flagHTTP != "" {
		hub = sink.NewMJPEG(log)
		sinks = append(sinks, hub)
	}

	annotator := render.NewAnnotator()

	if flagFont != "" {
		text, err := render.LoadFaceText(flagFont, flagFontSize, render.White)

		if err != nil {
			return err
		}

		annotator.Text = text
	}

	opts := []depthcount.PipelineOption{
		depthcount.WithPipelineLogger(log),
		depthcount.WithAnnotator(annotator),
	}

	if len(sinks) > 0 {
		opts = append(opts, depthcount.WithDispatcher(
			sink.NewDispatcher(2, log, sinks...), sink.NewMatPool(3)))
	}

	var journal *store.Journal

	if flagJournal != "" {
		journal, err = store.Open(flagJournal, 256, log)

		if err != nil {
			return err
		}

		opts = append(opts, depthcount.WithJournal(journal))
	}

	pipeline, err = depthcount.NewPipeline(cfg, src, opts...)

	if err != nil {
		return err
	}

	if flagHTTP != "" {
		srv := server.New(pipeline, hub, log)

		go func() {
			if err := srv.ListenAndServe(flagHTTP); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("HTTP server failed")
				cancel()
			}
		}()
	}

	if flagConsole {
		err = runConsole(pipeline)
	} else {
		err = pipeline.Run(ctx)
	}

	if journal != nil && err == nil {
		if totals, terr := journal.Totals(journal.Session()); terr == nil {
			log.WithFields(logrus.Fields{
				"in":      totals.In,
				"out":     totals.Out,
				"session": journal.Session().String(),
			}).Info("journal totals")
		}
	}

	counts := pipeline.Counts()
	fmt.Printf("Count IN: %d  Count OUT: %d\n", counts.In, counts.Out)

	if cerr := pipeline.Close(); cerr != nil {
		log.WithError(cerr).Warn("error closing pipeline")
	}

	return err
}

// runConsole starts capture and hands control to the operator console until
// the operator quits
func runConsole(pipeline *depthcount.Pipeline) error {

	if err := pipeline.Start(); err != nil {
		return err
	}

	if err := console.Run(pipeline); err != nil {
		return err
	}

	if err := pipeline.Stop(); err != nil && !errors.Is(err, depthcount.ErrNotRunning) {
		return err
	}

	return nil
}
