package logits

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	ErrInvalidTemperature     = errors.New("logits: temperature must be a positive finite number")
	ErrDegenerateDistribution = errors.New("logits: degenerate distribution")
)

// SamplerConfig configures the behaviour of a Sampler.
//
// Source takes precedence over Seed when both are set.
type SamplerConfig struct {
	Seed        int64
	Source      rand.Source
	Temperature float64
}

// Sampler draws symbol indices from temperature-scaled scores. A Sampler
// holds scratch buffers and its own random source, so it must not be shared
// between goroutines.
type Sampler struct {
	rng         *rand.Rand
	temperature float64
	prob        []float64
}

// NewSampler returns a new sampler with the provided configuration.
func NewSampler(cfg SamplerConfig) (*Sampler, error) {
	if err := ValidateTemperature(cfg.Temperature); err != nil {
		return nil, err
	}
	src := cfg.Source
	if src == nil {
		src = rand.NewSource(cfg.Seed)
	}
	return &Sampler{
		rng:         rand.New(src),
		temperature: cfg.Temperature,
	}, nil
}

// ValidateTemperature rejects zero, negative, NaN and infinite temperatures.
func ValidateTemperature(t float64) error {
	if !(t > 0) || math.IsInf(t, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidTemperature, t)
	}
	return nil
}

func (s *Sampler) Temperature() float64 {
	return s.temperature
}

// Sample draws a single index from the provided scores vector:
//
//  1. The maximum score is subtracted and the result divided by the
//     temperature.
//  2. The scaled scores are exponentiated and normalised.
//  3. A random value is drawn from [0,1) and used to select an index from
//     the cumulative distribution.
//
// Non-finite scores fail with ErrDegenerateDistribution.
func (s *Sampler) Sample(scores []float64) (int, error) {
	prob, err := s.distribution(scores)
	if err != nil {
		return 0, err
	}

	r := s.rng.Float64()
	var c float64
	last := -1
	for i, p := range prob {
		if p == 0 {
			continue
		}
		c += p
		last = i
		if r < c {
			return i, nil
		}
	}
	// Rounding left the cumulative sum just below r.
	if last < 0 {
		return 0, ErrDegenerateDistribution
	}
	return last, nil
}

// distribution returns the probabilities Sample draws from. The slice is the
// sampler's scratch buffer and is overwritten by the next call.
func (s *Sampler) distribution(scores []float64) ([]float64, error) {
	prob, err := softmax(s.prob, scores, s.temperature)
	if err != nil {
		return nil, err
	}
	s.prob = prob
	return prob, nil
}

// Softmax writes the normalised exponential of logits into dst, reusing its
// storage when large enough. The maximum logit is subtracted before
// exponentiating so large magnitudes cannot overflow.
func Softmax(dst, logits []float64) ([]float64, error) {
	return softmax(dst, logits, 1)
}

// softmax computes exp((v-max)/temperature) for every logit. Dividing after
// the shift keeps finite logits finite for any positive temperature: the
// maximum maps to exp(0) and overflowing differences only reach -Inf.
func softmax(dst, logits []float64, temperature float64) ([]float64, error) {
	if len(logits) == 0 {
		return nil, fmt.Errorf("%w: empty logits", ErrDegenerateDistribution)
	}
	maxv := math.Inf(-1)
	for i, v := range logits {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite logit %v at index %d", ErrDegenerateDistribution, v, i)
		}
		if v > maxv {
			maxv = v
		}
	}

	if cap(dst) < len(logits) {
		dst = make([]float64, len(logits))
	}
	prob := dst[:len(logits)]
	var sum float64
	for i, v := range logits {
		e := math.Exp((v - maxv) / temperature)
		prob[i] = e
		sum += e
	}
	if !(sum > 0) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: normaliser %v", ErrDegenerateDistribution, sum)
	}
	invSum := 1 / sum
	for i := range prob {
		prob[i] *= invSum
	}
	return prob, nil
}

// Argmax returns the index of the maximum value in the slice, or -1 for an
// empty slice.
func Argmax(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	bestI := 0
	bestV := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > bestV {
			bestV = x[i]
			bestI = i
		}
	}
	return bestI
}
