// Package composer holds the process-wide model and codec and turns
// composition requests into generated ABC text.
package composer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/tunesmith/internal/checkpoint"
	"github.com/samcharles93/tunesmith/internal/generate"
	"github.com/samcharles93/tunesmith/internal/logger"
	"github.com/samcharles93/tunesmith/internal/logits"
	"github.com/samcharles93/tunesmith/internal/recurrent"
	"github.com/samcharles93/tunesmith/internal/vocab"
)

const (
	DefaultSeed           = "X"
	DefaultTemperature    = 0.8
	DefaultLength         = 500
	DefaultMaxLength      = 2000
	DefaultMaxTemperature = 2.0
)

var (
	ErrLengthLimit      = errors.New("composer: length exceeds limit")
	ErrTemperatureLimit = errors.New("composer: temperature exceeds limit")
)

type Options struct {
	CheckpointPath string
	// CorpusPath, when set, rebuilds the alphabet from the training text
	// instead of reading it from the checkpoint.
	CorpusPath     string
	MaxLength      int
	MaxTemperature float64
	Logger         logger.Logger
}

type Composer struct {
	model          recurrent.StepModel
	codec          *vocab.Codec
	maxLength      int
	maxTemperature float64
	log            logger.Logger
	now            func() time.Time
}

// Load reads the checkpoint once. The result is safe for concurrent use.
func Load(opts Options) (*Composer, error) {
	if opts.CheckpointPath == "" {
		return nil, fmt.Errorf("composer: checkpoint path is required")
	}
	start := time.Now()
	ck, err := checkpoint.Load(opts.CheckpointPath)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	var corpus string
	if opts.CorpusPath != "" {
		raw, err := os.ReadFile(opts.CorpusPath)
		if err != nil {
			return nil, fmt.Errorf("read corpus: %w", err)
		}
		corpus = string(raw)
	}
	codec, err := ck.Codec(corpus)
	if err != nil {
		return nil, err
	}
	c, err := New(ck.Model, codec, opts)
	if err != nil {
		return nil, err
	}
	c.log.Info("model loaded",
		"checkpoint", opts.CheckpointPath,
		"vocab", ck.Config.VocabSize,
		"embedding_dim", ck.Config.EmbeddingDim,
		"hidden", ck.Config.HiddenSize,
		"elapsed", time.Since(start),
	)
	return c, nil
}

// New wraps an already loaded model. Zero limits fall back to the defaults.
func New(model recurrent.StepModel, codec *vocab.Codec, opts Options) (*Composer, error) {
	if model == nil || codec == nil {
		return nil, fmt.Errorf("composer: model and codec are required")
	}
	if model.VocabSize() != codec.Size() {
		return nil, fmt.Errorf("%w: model %d, codec %d", generate.ErrVocabMismatch, model.VocabSize(), codec.Size())
	}
	c := &Composer{
		model:          model,
		codec:          codec,
		maxLength:      opts.MaxLength,
		maxTemperature: opts.MaxTemperature,
		log:            opts.Logger,
		now:            time.Now,
	}
	if c.maxLength <= 0 {
		c.maxLength = DefaultMaxLength
	}
	if c.maxTemperature <= 0 {
		c.maxTemperature = DefaultMaxTemperature
	}
	if c.log == nil {
		c.log = logger.Discard()
	}
	return c, nil
}

func (c *Composer) Codec() *vocab.Codec { return c.codec }

func (c *Composer) MaxLength() int { return c.maxLength }

func (c *Composer) MaxTemperature() float64 { return c.maxTemperature }

// Request leaves fields nil to take the defaults.
type Request struct {
	Seed        *string
	Temperature *float64
	Length      *int
	RandSeed    *int64
}

type Composition struct {
	ID          string
	Seed        string
	Temperature float64
	Length      int
	RandSeed    int64
	Text        string
	CreatedAt   time.Time
	Stats       generate.Stats
}

// Tune returns the generated text without the seed prefix.
func (c *Composition) Tune() string {
	return c.Text[len(c.Seed):]
}

type settings struct {
	seed        string
	temperature float64
	length      int
	randSeed    int64
}

func (c *Composer) resolve(req Request) (settings, error) {
	s := settings{
		seed:        DefaultSeed,
		temperature: DefaultTemperature,
		length:      DefaultLength,
	}
	if req.Seed != nil {
		s.seed = *req.Seed
	}
	if req.Temperature != nil {
		s.temperature = *req.Temperature
	}
	if req.Length != nil {
		s.length = *req.Length
	}
	if req.RandSeed != nil {
		s.randSeed = *req.RandSeed
	} else {
		s.randSeed = c.now().UnixNano()
	}

	if s.length > c.maxLength {
		return s, fmt.Errorf("%w: %d > %d", ErrLengthLimit, s.length, c.maxLength)
	}
	if err := logits.ValidateTemperature(s.temperature); err != nil {
		return s, err
	}
	if s.temperature > c.maxTemperature {
		return s, fmt.Errorf("%w: %g > %g", ErrTemperatureLimit, s.temperature, c.maxTemperature)
	}
	return s, nil
}

// Compose generates one tune. ctx is only checked before generation starts;
// a running generation is not interrupted.
func (c *Composer) Compose(ctx context.Context, req Request, opts ...generate.Option) (*Composition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	opts = append([]generate.Option{generate.WithLogger(c.log)}, opts...)

	text, stats, err := generate.Run(c.model, c.codec, generate.Request{
		Seed:        s.seed,
		Length:      s.length,
		Temperature: s.temperature,
		RandSeed:    s.randSeed,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Composition{
		ID:          uuid.NewString(),
		Seed:        s.seed,
		Temperature: s.temperature,
		Length:      s.length,
		RandSeed:    s.randSeed,
		Text:        text,
		CreatedAt:   c.now().UTC(),
		Stats:       stats,
	}, nil
}
