package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/swdee/go-depthcount/source"
)

// synthCmd writes the synthetic demo scene to a session directory that can
// be replayed with --source
func synthCmd() *cobra.Command {

	var (
		out    string
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write the synthetic demo scene as a recorded session",
		RunE: func(cmd *cobra.Command, args []string) error {

			log, err := newLogger()

			if err != nil {
				return err
			}

			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("error creating session directory: %w", err)
			}

			src := source.NewSynthetic(source.DemoScript(width, height),
				source.WithSyntheticPacing(false),
				source.WithSyntheticLogger(log))

			if err := src.Start(width, height, 60); err != nil {
				return err
			}
			defer src.Stop()

			n := 0

			for {
				f, err := src.WaitForFrames(context.Background())

				if errors.Is(err, io.EOF) {
					break
				}

				if err != nil {
					return err
				}

				err = source.WriteFrames(out, n, f)
				f.Close()

				if err != nil {
					return err
				}

				n++
			}

			log.WithField("frames", n).WithField("dir", out).Info("session written")
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "session", "Directory to write the session into")
	cmd.Flags().IntVar(&width, "width", 320, "Frame width")
	cmd.Flags().IntVar(&height, "height", 240, "Frame height")

	return cmd
}
