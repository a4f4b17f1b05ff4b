package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tunesmith/internal/checkpoint"
	"github.com/samcharles93/tunesmith/internal/vocab"
)

type vocabEntry struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol"`
}

type vocabOutput struct {
	Size     int          `json:"size"`
	Alphabet string       `json:"alphabet"`
	Symbols  []vocabEntry `json:"symbols"`
}

func vocabCmd() *cli.Command {
	var format string

	return &cli.Command{
		Name:  "vocab",
		Usage: "Print the symbol table of a corpus or checkpoint",
		Flags: append(commonModelFlags(),
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &format,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFromContext(ctx)
			codec, err := loadCodec(cfg)
			if err != nil {
				return err
			}

			out := vocabOutput{Size: codec.Size(), Alphabet: codec.Alphabet()}
			for i, r := range []rune(codec.Alphabet()) {
				out.Symbols = append(out.Symbols, vocabEntry{Index: i, Symbol: string(r)})
			}

			w := stdout(cmd)
			switch format {
			case "json":
				b, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, string(b))
				return err
			case "text":
				_, _ = fmt.Fprintf(w, "size: %d\n", out.Size)
				for _, e := range out.Symbols {
					_, _ = fmt.Fprintf(w, "%4d  %s\n", e.Index, strconv.Quote(e.Symbol))
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
		},
	}
}

// loadCodec prefers the corpus and falls back to the alphabet stored in the
// checkpoint.
func loadCodec(cfg Config) (*vocab.Codec, error) {
	if p := resolveCorpus(corpusPath, cfg); p != "" {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read corpus: %w", err)
		}
		return vocab.Build(string(raw))
	}
	ckPath, err := resolveCheckpoint(checkpointPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("--corpus or --checkpoint is required")
	}
	ck, err := checkpoint.Load(ckPath)
	if err != nil {
		return nil, err
	}
	return ck.Codec("")
}
