package logits

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// TestSamplerDeterminism ensures that two samplers configured identically
// produce identical sequences when sampling the same scores.
func TestSamplerDeterminism(t *testing.T) {
	scores := []float64{0, 1, 2, 3, 4, 5}
	s1, err := NewSampler(SamplerConfig{Seed: 42, Temperature: 0.9})
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	s2, _ := NewSampler(SamplerConfig{Seed: 42, Temperature: 0.9})
	for i := 0; i < 50; i++ {
		a, err := s1.Sample(scores)
		if err != nil {
			t.Fatalf("Sample: %v", err)
		}
		b, _ := s2.Sample(scores)
		if a != b {
			t.Fatalf("draw %d: expected deterministic sample, got %d vs %d", i, a, b)
		}
	}
}

func TestSamplerUsesInjectedSource(t *testing.T) {
	scores := []float64{1, 1, 1, 1}
	a, _ := NewSampler(SamplerConfig{Source: rand.NewSource(7), Seed: 1, Temperature: 1})
	b, _ := NewSampler(SamplerConfig{Seed: 7, Temperature: 1})
	for i := 0; i < 20; i++ {
		x, _ := a.Sample(scores)
		y, _ := b.Sample(scores)
		if x != y {
			t.Fatalf("Source should take precedence over Seed")
		}
	}
}

func TestNewSamplerRejectsTemperature(t *testing.T) {
	for _, temp := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := NewSampler(SamplerConfig{Temperature: temp}); !errors.Is(err, ErrInvalidTemperature) {
			t.Fatalf("temperature %v: expected ErrInvalidTemperature, got %v", temp, err)
		}
	}
}

// TestSamplerNearGreedy checks that a tiny temperature concentrates all mass
// on the largest score.
func TestSamplerNearGreedy(t *testing.T) {
	scores := []float64{1, 3, 1}
	s, _ := NewSampler(SamplerConfig{Seed: 99, Temperature: 1e-4})
	for i := 0; i < 1000; i++ {
		idx, err := s.Sample(scores)
		if err != nil {
			t.Fatalf("Sample: %v", err)
		}
		if idx != Argmax(scores) {
			t.Fatalf("near-greedy sampling returned %d", idx)
		}
	}
}

func TestSamplerIsStochastic(t *testing.T) {
	scores := []float64{1, 1.2, 0.8}
	s, _ := NewSampler(SamplerConfig{Seed: 5, Temperature: 1})
	seen := make(map[int]bool)
	for i := 0; i < 500; i++ {
		idx, _ := s.Sample(scores)
		seen[idx] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected every index to be drawn at temperature 1, saw %v", seen)
	}
}

func entropy(counts []int, total int) float64 {
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log(p)
	}
	return h
}

// TestTemperatureMonotonicity samples a fixed non-uniform score vector at two
// temperatures and checks the colder one yields a sharper empirical
// distribution.
func TestTemperatureMonotonicity(t *testing.T) {
	scores := []float64{2, 1, 0.5, 0}
	const trials = 5000

	empirical := func(temp float64) float64 {
		s, err := NewSampler(SamplerConfig{Seed: 1234, Temperature: temp})
		if err != nil {
			t.Fatalf("NewSampler: %v", err)
		}
		counts := make([]int, len(scores))
		for i := 0; i < trials; i++ {
			idx, err := s.Sample(scores)
			if err != nil {
				t.Fatalf("Sample: %v", err)
			}
			counts[idx]++
		}
		return entropy(counts, trials)
	}

	cold := empirical(0.5)
	warm := empirical(2.0)
	// Expected entropies are about 0.59 and 1.31 nats.
	if cold+0.3 >= warm {
		t.Fatalf("expected entropy at T=0.5 (%f) well below T=2.0 (%f)", cold, warm)
	}
	if math.Abs(cold-0.59) > 0.1 || math.Abs(warm-1.31) > 0.1 {
		t.Fatalf("entropies outside tolerance: cold=%f warm=%f", cold, warm)
	}
}

func TestSoftmaxStableForLargeScores(t *testing.T) {
	tests := [][]float64{
		{1e8, 0, -1e8},
		{1e8, 1e8 - 1, 3},
		{-1e8, -1e8, -1e8},
		{700, 710, 720},
	}
	for _, logits := range tests {
		prob, err := Softmax(nil, logits)
		if err != nil {
			t.Fatalf("Softmax(%v): %v", logits, err)
		}
		var sum float64
		for _, p := range prob {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				t.Fatalf("Softmax(%v) produced %v", logits, prob)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("Softmax(%v) sums to %f", logits, sum)
		}
	}

	prob, _ := Softmax(nil, []float64{1e8, 0, -1e8})
	if prob[0] != 1 {
		t.Fatalf("expected all mass on the dominant entry, got %v", prob)
	}
}

func TestSamplerLargeScoreAtLowTemperature(t *testing.T) {
	tests := []struct {
		name   string
		temp   float64
		scores []float64
		want   []float64
	}{
		{"huge score", 1e-4, []float64{1e305, 0, -1}, []float64{1, 0, 0}},
		{"subnormal temperature", 1e-310, []float64{1e305, 0, -1}, []float64{1, 0, 0}},
		{"subnormal temperature small scores", 1e-310, []float64{0, 1, 0}, []float64{0, 1, 0}},
		{"tied huge scores", 1e-4, []float64{1e305, 0, 1e305}, []float64{0.5, 0, 0.5}},
		{"opposite extremes", 1, []float64{-1e308, 1e308}, []float64{0, 1}},
		{"mild scores", 1e-3, []float64{1e8, 1, 0}, []float64{1, 0, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSampler(SamplerConfig{Seed: 3, Temperature: tc.temp})
			if err != nil {
				t.Fatalf("NewSampler: %v", err)
			}
			prob, err := s.distribution(tc.scores)
			if err != nil {
				t.Fatalf("distribution: %v", err)
			}
			for i, p := range prob {
				if math.Abs(p-tc.want[i]) > 1e-12 {
					t.Fatalf("got %v want %v", prob, tc.want)
				}
			}
			idx, err := s.Sample(tc.scores)
			if err != nil {
				t.Fatalf("Sample: %v", err)
			}
			if tc.want[idx] == 0 {
				t.Fatalf("sampled index %d has zero probability", idx)
			}
		})
	}
}

func TestSamplerDegenerateScores(t *testing.T) {
	s, _ := NewSampler(SamplerConfig{Seed: 1, Temperature: 1})
	tests := [][]float64{
		{math.NaN(), 1, 2},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
		{},
	}
	for _, scores := range tests {
		if _, err := s.Sample(scores); !errors.Is(err, ErrDegenerateDistribution) {
			t.Fatalf("Sample(%v): expected ErrDegenerateDistribution, got %v", scores, err)
		}
	}

	// Non-finite input is rejected even when the temperature is tiny.
	tiny, _ := NewSampler(SamplerConfig{Seed: 1, Temperature: 1e-310})
	if _, err := tiny.Sample([]float64{math.Inf(1), 0}); !errors.Is(err, ErrDegenerateDistribution) {
		t.Fatalf("expected ErrDegenerateDistribution, got %v", err)
	}
}

func TestArgmax(t *testing.T) {
	if got := Argmax([]float64{-1, 5, 3, 7, 2}); got != 3 {
		t.Fatalf("Argmax: got %d want 3", got)
	}
	if got := Argmax(nil); got != -1 {
		t.Fatalf("Argmax(nil): got %d want -1", got)
	}
}
