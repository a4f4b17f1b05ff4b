package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tunesmith/internal/api"
	"github.com/samcharles93/tunesmith/internal/composer"
	"github.com/samcharles93/tunesmith/internal/logger"
	"github.com/samcharles93/tunesmith/internal/render"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		maxLength   int64
		maxTemp     float64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the composition REST API",
		Flags: append(commonModelFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "max-length",
				Usage:       "largest length a request may ask for",
				Value:       composer.DefaultMaxLength,
				Destination: &maxLength,
			},
			&cli.Float64Flag{
				Name:        "max-temperature",
				Usage:       "largest temperature a request may ask for",
				Value:       composer.DefaultMaxTemperature,
				Destination: &maxTemp,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := configFromContext(ctx)
			applyServeConfig(cmd, cfg, &addr)
			applyLimitsConfig(cmd, cfg, &maxLength, &maxTemp)

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

			server := api.NewServer(api.ServerConfig{
				Store:    api.NewCompositionStore(),
				Composer: comp,
				Renderer: render.NewSynth(),
				Logger:   log.With("component", "api"),
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "max_length", maxLength, "max_temperature", maxTemp)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
