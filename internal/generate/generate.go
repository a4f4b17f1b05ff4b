// Package generate runs autoregressive character sampling over a recurrent
// step model.
package generate

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/samcharles93/tunesmith/internal/logger"
	"github.com/samcharles93/tunesmith/internal/logits"
	"github.com/samcharles93/tunesmith/internal/recurrent"
	"github.com/samcharles93/tunesmith/internal/vocab"
)

var (
	ErrInvalidLength = errors.New("generate: length must be positive")
	ErrEmptySeed     = errors.New("generate: seed text is empty")
	ErrVocabMismatch = errors.New("generate: model and codec vocabulary sizes differ")
	ErrNilSampler    = errors.New("generate: sampler is required")
)

type Stats struct {
	Symbols  int
	Duration time.Duration
	SPS      float64
	// Greedy counts steps where the sampled symbol was also the most likely one.
	Greedy int
}

type options struct {
	onSymbol func(rune)
	log      logger.Logger
}

type Option func(*options)

// WithSymbolFunc calls fn with every generated symbol as soon as it is
// sampled. The seed is not passed to fn.
func WithSymbolFunc(fn func(rune)) Option {
	return func(o *options) { o.onSymbol = fn }
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// Request bundles the parameters for Run.
type Request struct {
	Seed        string
	Length      int
	Temperature float64
	// RandSeed seeds the sampler when Source is nil.
	RandSeed int64
	Source   rand.Source
}

// Run builds a sampler for req and generates. Temperature is validated before
// any model work happens.
func Run(model recurrent.StepModel, codec *vocab.Codec, req Request, opts ...Option) (string, Stats, error) {
	sampler, err := logits.NewSampler(logits.SamplerConfig{
		Seed:        req.RandSeed,
		Source:      req.Source,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", Stats{}, err
	}
	return GenerateWithStats(req.Seed, model, codec, req.Length, sampler, opts...)
}

// Generate returns seed followed by exactly length sampled symbols.
func Generate(seed string, model recurrent.StepModel, codec *vocab.Codec, length int, sampler *logits.Sampler, opts ...Option) (string, error) {
	text, _, err := GenerateWithStats(seed, model, codec, length, sampler, opts...)
	return text, err
}

// GenerateWithStats drives the model one symbol at a time:
//
//  1. The whole seed is fed once to prime a fresh state.
//  2. The scores at the last position are sampled with the sampler's
//     temperature.
//  3. The sampled index alone is fed back with the carried state.
//
// Any failure aborts the call and no partial text is returned.
func GenerateWithStats(seed string, model recurrent.StepModel, codec *vocab.Codec, length int, sampler *logits.Sampler, opts ...Option) (string, Stats, error) {
	var stats Stats
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if length <= 0 {
		return "", stats, fmt.Errorf("%w: got %d", ErrInvalidLength, length)
	}
	if seed == "" {
		return "", stats, ErrEmptySeed
	}
	if sampler == nil {
		return "", stats, ErrNilSampler
	}
	if model.VocabSize() != codec.Size() {
		return "", stats, fmt.Errorf("%w: model %d, codec %d", ErrVocabMismatch, model.VocabSize(), codec.Size())
	}

	ids, err := codec.Encode(seed)
	if err != nil {
		return "", stats, fmt.Errorf("encode seed: %w", err)
	}
	state, err := model.InitState(1)
	if err != nil {
		return "", stats, fmt.Errorf("init state: %w", err)
	}

	var sb strings.Builder
	sb.Grow(len(seed) + length)
	sb.WriteString(seed)

	input := [][]int{ids}
	start := time.Now()
	for i := 0; i < length; i++ {
		scores, next, err := model.Step(input, state)
		if err != nil {
			return "", stats, fmt.Errorf("step %d: %w", i, err)
		}
		if len(scores) != 1 || len(scores[0]) == 0 {
			return "", stats, fmt.Errorf("step %d: %w: model returned no scores", i, recurrent.ErrInvalidInput)
		}
		last := scores[0][len(scores[0])-1]
		// Wider rows are sampled as is; an index past the alphabet fails to decode.
		if len(last) < codec.Size() {
			return "", stats, fmt.Errorf("step %d: %w: %d scores for %d symbols", i, recurrent.ErrInvalidInput, len(last), codec.Size())
		}

		idx, err := sampler.Sample(last)
		if err != nil {
			return "", stats, fmt.Errorf("step %d: %w", i, err)
		}
		sym, err := codec.Symbol(idx)
		if err != nil {
			return "", stats, fmt.Errorf("step %d: %w", i, err)
		}
		if idx == logits.Argmax(last) {
			stats.Greedy++
		}

		sb.WriteRune(sym)
		if o.onSymbol != nil {
			o.onSymbol(sym)
		}
		state = next
		input = [][]int{{idx}}
		stats.Symbols++
	}

	stats.Duration = time.Since(start)
	if stats.Duration.Seconds() > 0 {
		stats.SPS = float64(stats.Symbols) / stats.Duration.Seconds()
	}
	if o.log != nil {
		o.log.Debug("generation finished",
			"seed_len", len(ids),
			"symbols", stats.Symbols,
			"greedy", stats.Greedy,
			"temperature", sampler.Temperature(),
			"duration", stats.Duration,
		)
	}
	return sb.String(), stats, nil
}
