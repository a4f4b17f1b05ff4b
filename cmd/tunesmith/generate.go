package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tunesmith/internal/api"
	"github.com/samcharles93/tunesmith/internal/composer"
	"github.com/samcharles93/tunesmith/internal/generate"
	"github.com/samcharles93/tunesmith/internal/logger"
	"github.com/samcharles93/tunesmith/internal/render"
)

func generateCmd() *cli.Command {
	var (
		seedText  string
		temp      float64
		length    int64
		seed      int64
		maxLength int64
		maxTemp   float64
		outPath   string
		wavPath   string
		stream    bool
		format    string
	)

	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"gen"},
		Usage:   "Generate a tune from a seed",
		Flags: append(commonModelFlags(),
			&cli.StringFlag{
				Name:        "seed-text",
				Aliases:     []string{"prompt", "p"},
				Usage:       "text the tune starts with",
				Value:       composer.DefaultSeed,
				Destination: &seedText,
			},
			&cli.Float64Flag{
				Name:        "temperature",
				Aliases:     []string{"temp", "t"},
				Usage:       "sampling temperature",
				Value:       composer.DefaultTemperature,
				Destination: &temp,
			},
			&cli.Int64Flag{
				Name:        "length",
				Aliases:     []string{"n"},
				Usage:       "number of symbols to generate",
				Value:       composer.DefaultLength,
				Destination: &length,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "sampling RNG seed (default -1 = random)",
				Value:       -1,
				Destination: &seed,
			},
			&cli.Int64Flag{
				Name:        "max-length",
				Usage:       "upper bound for --length",
				Value:       composer.DefaultMaxLength,
				Destination: &maxLength,
			},
			&cli.Float64Flag{
				Name:        "max-temperature",
				Usage:       "upper bound for --temperature",
				Value:       composer.DefaultMaxTemperature,
				Destination: &maxTemp,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "also write the text to this file",
				Destination: &outPath,
			},
			&cli.StringFlag{
				Name:        "wav",
				Usage:       "render the tune to this WAV file",
				Destination: &wavPath,
			},
			&cli.BoolFlag{
				Name:        "stream",
				Usage:       "print symbols as they are sampled",
				Destination: &stream,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &format,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := configFromContext(ctx)
			applyGenerateConfig(cmd, cfg, &seedText, &temp, &length)
			applyLimitsConfig(cmd, cfg, &maxLength, &maxTemp)

			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			if stream && format == "json" {
				return fmt.Errorf("--stream cannot be combined with --format json")
			}

			ckPath, err := resolveCheckpoint(checkpointPath, cfg)
			if err != nil {
				return err
			}
			comp, err := composer.Load(composer.Options{
				CheckpointPath: ckPath,
				CorpusPath:     resolveCorpus(corpusPath, cfg),
				MaxLength:      int(maxLength),
				MaxTemperature: maxTemp,
				Logger:         log,
			})
			if err != nil {
				return err
			}

			req := composer.Request{
				Seed:        &seedText,
				Temperature: &temp,
				Length:      ptr(int(length)),
			}
			if seed >= 0 {
				req.RandSeed = &seed
			}

			out := bufio.NewWriter(stdout(cmd))
			defer func() { _ = out.Flush() }()

			var (
				opts    []generate.Option
				started bool
			)
			if stream {
				// The seed is printed with the first symbol so a request that
				// fails validation leaves stdout empty.
				opts = append(opts, generate.WithSymbolFunc(func(r rune) {
					if !started {
						started = true
						_, _ = out.WriteString(seedText)
					}
					_, _ = out.WriteRune(r)
					_ = out.Flush()
				}))
			}

			result, err := comp.Compose(ctx, req, opts...)
			if err != nil {
				if started {
					_, _ = out.WriteString("\n")
				}
				return err
			}

			switch {
			case format == "json":
				b, err := json.MarshalIndent(api.NewCompositionResponse(result), "", "  ")
				if err != nil {
					return err
				}
				_, _ = out.Write(b)
				_, _ = out.WriteString("\n")
			case stream:
				_, _ = out.WriteString("\n")
			default:
				_, _ = fmt.Fprintln(out, result.Text)
			}

			log.Info("generated",
				"symbols", result.Stats.Symbols,
				"elapsed", result.Stats.Duration.Round(time.Millisecond),
				"symbols/s", fmt.Sprintf("%.1f", result.Stats.SPS),
				"rand_seed", result.RandSeed,
			)

			if outPath != "" {
				if err := writeOutput(outPath, []byte(result.Text)); err != nil {
					return fmt.Errorf("write text: %w", err)
				}
				log.Info("wrote text", "path", outPath)
			}
			if wavPath != "" {
				wav, err := render.NewSynth().Render(result.Text)
				if err != nil {
					return fmt.Errorf("render: %w", err)
				}
				if err := writeOutput(wavPath, wav); err != nil {
					return fmt.Errorf("write wav: %w", err)
				}
				log.Info("wrote audio", "path", wavPath, "bytes", len(wav))
			}
			return nil
		},
	}
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func ptr[T any](v T) *T { return &v }
