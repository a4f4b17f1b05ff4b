package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tunesmith/internal/logger"
	"github.com/samcharles93/tunesmith/internal/render"
)

func renderCmd() *cli.Command {
	var (
		inPath  string
		outPath string
	)

	return &cli.Command{
		Name:  "render",
		Usage: "Render an ABC file to WAV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "in",
				Aliases:     []string{"i"},
				Usage:       "ABC text file (- for stdin)",
				Value:       "-",
				Destination: &inPath,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output WAV path",
				Required:    true,
				Destination: &outPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			text, err := readInput(inPath, os.Stdin)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			notes := render.Notes(string(text))
			if len(notes) == 0 {
				log.Warn("no pitch symbols found, rendering fallback tone", "hz", render.FallbackFrequency)
			}
			wav, err := render.NewSynth().Render(string(text))
			if err != nil {
				return err
			}
			if err := writeOutput(outPath, wav); err != nil {
				return fmt.Errorf("write wav: %w", err)
			}
			log.Info("wrote audio", "path", outPath, "notes", len(notes), "bytes", len(wav))
			return nil
		},
	}
}
