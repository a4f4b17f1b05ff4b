package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tunesmith/internal/checkpoint"
	"github.com/samcharles93/tunesmith/internal/logger"
	"github.com/samcharles93/tunesmith/internal/recurrent"
	"github.com/samcharles93/tunesmith/internal/vocab"
)

func initCheckpointCmd() *cli.Command {
	var (
		embeddingDim int64
		hiddenSize   int64
		seed         int64
		outPath      string
	)

	return &cli.Command{
		Name:  "init-checkpoint",
		Usage: "Write a randomly initialised checkpoint for a corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "corpus",
				Usage:       "training corpus (or $" + envCorpus + ")",
				Destination: &corpusPath,
			},
			&cli.Int64Flag{
				Name:        "embedding-dim",
				Usage:       "embedding width",
				Value:       64,
				Destination: &embeddingDim,
			},
			&cli.Int64Flag{
				Name:        "hidden-size",
				Usage:       "LSTM hidden width",
				Value:       128,
				Destination: &hiddenSize,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "weight RNG seed (default -1 = random)",
				Value:       -1,
				Destination: &seed,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output .safetensors path",
				Required:    true,
				Destination: &outPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := configFromContext(ctx)

			p := resolveCorpus(corpusPath, cfg)
			if p == "" {
				return fmt.Errorf("--corpus is required unless %s is set", envCorpus)
			}
			raw, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("read corpus: %w", err)
			}
			codec, err := vocab.Build(string(raw))
			if err != nil {
				return err
			}

			if seed < 0 {
				seed = time.Now().UnixNano()
			}
			model, err := recurrent.NewRandomLSTM(recurrent.Config{
				VocabSize:    codec.Size(),
				EmbeddingDim: int(embeddingDim),
				HiddenSize:   int(hiddenSize),
			}, rand.New(rand.NewSource(seed)))
			if err != nil {
				return err
			}
			if err := checkpoint.Save(outPath, model, codec); err != nil {
				return err
			}
			log.Info("wrote checkpoint",
				"path", outPath,
				"vocab", codec.Size(),
				"embedding_dim", embeddingDim,
				"hidden", hiddenSize,
				"seed", seed,
			)
			return nil
		},
	}
}
