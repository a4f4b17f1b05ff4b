package generate

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/samcharles93/tunesmith/internal/logits"
	"github.com/samcharles93/tunesmith/internal/recurrent"
	"github.com/samcharles93/tunesmith/internal/toy"
	"github.com/samcharles93/tunesmith/internal/vocab"
)

type stubState struct{ batch int }

func (s stubState) BatchSize() int { return s.batch }

// fixedModel returns the same scores for every position and records the
// inputs it was given.
// vocab, when set, overrides the reported vocabulary size.
type fixedModel struct {
	scores []float64
	vocab  int
	calls  [][][]int
	err    error
	errAt  int
}

func (m *fixedModel) VocabSize() int {
	if m.vocab > 0 {
		return m.vocab
	}
	return len(m.scores)
}

func (m *fixedModel) InitState(batch int) (recurrent.State, error) {
	return stubState{batch: batch}, nil
}

func (m *fixedModel) Step(inputs [][]int, state recurrent.State) ([][][]float64, recurrent.State, error) {
	m.calls = append(m.calls, inputs)
	if m.err != nil && len(m.calls) > m.errAt {
		return nil, nil, m.err
	}
	out := make([][][]float64, len(inputs))
	for b, row := range inputs {
		out[b] = make([][]float64, len(row))
		for t := range row {
			s := make([]float64, len(m.scores))
			copy(s, m.scores)
			out[b][t] = s
		}
	}
	return out, state, nil
}

// lastPositionModel favours a different symbol at each position, so only the
// final position's scores lead to index 2.
type lastPositionModel struct{}

func (lastPositionModel) VocabSize() int { return 3 }
func (lastPositionModel) InitState(batch int) (recurrent.State, error) {
	return stubState{batch: batch}, nil
}
func (lastPositionModel) Step(inputs [][]int, state recurrent.State) ([][][]float64, recurrent.State, error) {
	row := inputs[0]
	out := make([][]float64, len(row))
	for t := range row {
		out[t] = []float64{100, 0, 0}
	}
	out[len(row)-1] = []float64{0, 0, 100}
	return [][][]float64{out}, state, nil
}

func mustCodec(t *testing.T, corpus string) *vocab.Codec {
	t.Helper()
	c, err := vocab.Build(corpus)
	if err != nil {
		t.Fatalf("vocab.Build: %v", err)
	}
	return c
}

func mustSampler(t *testing.T, seed int64, temp float64) *logits.Sampler {
	t.Helper()
	s, err := logits.NewSampler(logits.SamplerConfig{Seed: seed, Temperature: temp})
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	return s
}

// TestNearGreedyScenario: alphabet {A,B,C}, scores [3,1,1], temperature 1e-4.
func TestNearGreedyScenario(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "CBA")
	deviations := 0
	const trials = 200
	for seed := int64(0); seed < trials; seed++ {
		model := &fixedModel{scores: []float64{3, 1, 1}}
		out, err := Generate("A", model, codec, 5, mustSampler(t, seed, 0.0001))
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if out != "AAAAAA" {
			deviations++
		}
	}
	if deviations != 0 {
		t.Fatalf("expected AAAAAA in every trial, %d of %d deviated", deviations, trials)
	}
}

func TestFeedsSeedOnceThenSingleSymbols(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "ABC")
	model := &fixedModel{scores: []float64{0, 10000, 0}}
	out, err := Generate("CAB", model, codec, 3, mustSampler(t, 1, 1))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "CABBBB" {
		t.Fatalf("got %q want %q", out, "CABBBB")
	}
	if len(model.calls) != 3 {
		t.Fatalf("expected 3 step calls, got %d", len(model.calls))
	}
	if got := model.calls[0]; len(got) != 1 || len(got[0]) != 3 || got[0][0] != 2 || got[0][1] != 0 || got[0][2] != 1 {
		t.Fatalf("first call should carry the whole seed, got %v", got)
	}
	for i, call := range model.calls[1:] {
		if len(call) != 1 || len(call[0]) != 1 || call[0][0] != 1 {
			t.Fatalf("call %d should carry only the sampled index, got %v", i+1, call)
		}
	}
}

func TestUsesLastPositionScores(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "ABC")
	out, err := Generate("AAAA", lastPositionModel{}, codec, 2, mustSampler(t, 1, 1))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "AAAACC" {
		t.Fatalf("got %q want %q", out, "AAAACC")
	}
}

func TestLengthContract(t *testing.T) {
	t.Parallel()

	corpus := "X:1\nT:Reel\nK:D\n|:DFAF dFAF|"
	codec := mustCodec(t, corpus)
	lstm, err := recurrent.NewRandomLSTM(recurrent.Config{
		VocabSize:    codec.Size(),
		EmbeddingDim: 8,
		HiddenSize:   16,
	}, rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("NewRandomLSTM: %v", err)
	}
	bigram := toy.NewBigram(codec.Size(), 5, 9)

	models := map[string]recurrent.StepModel{"lstm": lstm, "bigram": bigram}
	for name, model := range models {
		for _, seed := range []string{"X", "X:1\n"} {
			for _, length := range []int{1, 7, 120} {
				out, stats, err := GenerateWithStats(seed, model, codec, length, mustSampler(t, int64(length), 0.8))
				if err != nil {
					t.Fatalf("%s: Generate: %v", name, err)
				}
				if got, want := len([]rune(out)), len([]rune(seed))+length; got != want {
					t.Fatalf("%s seed=%q length=%d: got %d runes want %d", name, seed, length, got, want)
				}
				if !strings.HasPrefix(out, seed) {
					t.Fatalf("%s: output does not start with seed: %q", name, out)
				}
				if stats.Symbols != length {
					t.Fatalf("%s: stats.Symbols = %d want %d", name, stats.Symbols, length)
				}
				for _, r := range out {
					if _, ok := codec.Index(r); !ok {
						t.Fatalf("%s: generated symbol %q outside the alphabet", name, r)
					}
				}
			}
		}
	}
}

func TestDeterministicWithSameSeed(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "abcdefg |")
	lstm, _ := recurrent.NewRandomLSTM(recurrent.Config{VocabSize: codec.Size(), EmbeddingDim: 4, HiddenSize: 8}, rand.New(rand.NewSource(2)))

	req := Request{Seed: "a", Length: 64, Temperature: 1.1, RandSeed: 77}
	a, _, err := Run(lstm, codec, req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, _, err := Run(lstm, codec, req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if a != b {
		t.Fatalf("same seed produced different output:\n%q\n%q", a, b)
	}
}

func TestUnknownSeedSymbolFailsDeterministically(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "ABC")
	for i := 0; i < 5; i++ {
		model := &fixedModel{scores: []float64{1, 1, 1}}
		out, err := Generate("Z", model, codec, 5, mustSampler(t, int64(i), 1))
		if !errors.Is(err, vocab.ErrUnknownSymbol) {
			t.Fatalf("expected ErrUnknownSymbol, got %v", err)
		}
		if !strings.Contains(err.Error(), `"Z"`) {
			t.Fatalf("error should mention Z: %v", err)
		}
		if out != "" {
			t.Fatalf("no partial output expected, got %q", out)
		}
		if len(model.calls) != 0 {
			t.Fatalf("model should not be stepped after an encode failure")
		}
	}
}

func TestRejectsInvalidArguments(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "ABC")
	model := &fixedModel{scores: []float64{1, 1, 1}}

	if _, err := Generate("A", model, codec, 0, mustSampler(t, 1, 1)); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
	if _, err := Generate("A", model, codec, -3, mustSampler(t, 1, 1)); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
	if _, err := Generate("", model, codec, 1, mustSampler(t, 1, 1)); !errors.Is(err, ErrEmptySeed) {
		t.Fatalf("expected ErrEmptySeed, got %v", err)
	}
	if _, err := Generate("A", model, codec, 1, nil); !errors.Is(err, ErrNilSampler) {
		t.Fatalf("expected ErrNilSampler, got %v", err)
	}
	wide := &fixedModel{scores: []float64{1, 1, 1, 1}}
	if _, err := Generate("A", wide, codec, 1, mustSampler(t, 1, 1)); !errors.Is(err, ErrVocabMismatch) {
		t.Fatalf("expected ErrVocabMismatch, got %v", err)
	}

	for _, temp := range []float64{0, -0.5, math.NaN()} {
		_, _, err := Run(model, codec, Request{Seed: "A", Length: 1, Temperature: temp})
		if !errors.Is(err, logits.ErrInvalidTemperature) {
			t.Fatalf("temperature %v: expected ErrInvalidTemperature, got %v", temp, err)
		}
	}
	if len(model.calls) != 0 {
		t.Fatalf("model should not be stepped for invalid arguments")
	}
}

func TestDegenerateScoresAbort(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "ABC")
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		model := &fixedModel{scores: []float64{1, bad, 1}}
		out, err := Generate("A", model, codec, 4, mustSampler(t, 1, 1))
		if !errors.Is(err, logits.ErrDegenerateDistribution) {
			t.Fatalf("score %v: expected ErrDegenerateDistribution, got %v", bad, err)
		}
		if out != "" {
			t.Fatalf("no partial output expected, got %q", out)
		}
	}
}

func TestScoreRowWidth(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "ABC")

	t.Run("index past the alphabet fails to decode", func(t *testing.T) {
		t.Parallel()
		model := &fixedModel{scores: []float64{0, 0, 0, 10000}, vocab: 3}
		var streamed []rune
		out, err := Generate("A", model, codec, 4, mustSampler(t, 1, 1), WithSymbolFunc(func(r rune) {
			streamed = append(streamed, r)
		}))
		if !errors.Is(err, vocab.ErrIndexOutOfRange) {
			t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
		}
		var rangeErr *vocab.IndexOutOfRangeError
		if !errors.As(err, &rangeErr) || rangeErr.Index != 3 || rangeErr.Size != 3 {
			t.Fatalf("expected index 3 of 3 in error, got %v", err)
		}
		if out != "" || len(streamed) != 0 {
			t.Fatalf("no partial output expected, got %q streamed %q", out, string(streamed))
		}
		if len(model.calls) != 1 {
			t.Fatalf("expected generation to stop after the first step, got %d calls", len(model.calls))
		}
	})

	t.Run("narrow rows are rejected", func(t *testing.T) {
		t.Parallel()
		model := &fixedModel{scores: []float64{1, 1}, vocab: 3}
		out, err := Generate("A", model, codec, 4, mustSampler(t, 1, 1))
		if !errors.Is(err, recurrent.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if out != "" {
			t.Fatalf("no partial output expected, got %q", out)
		}
	})
}

func TestStepErrorAbortsWithoutRetry(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "ABC")
	boom := errors.New("boom")
	model := &fixedModel{scores: []float64{5, 0, 0}, err: boom, errAt: 2}
	out, err := Generate("A", model, codec, 10, mustSampler(t, 1, 1))
	if !errors.Is(err, boom) {
		t.Fatalf("expected step error, got %v", err)
	}
	if out != "" {
		t.Fatalf("no partial output expected, got %q", out)
	}
	if len(model.calls) != 3 {
		t.Fatalf("expected generation to stop at the failing call, got %d calls", len(model.calls))
	}
}

func TestSymbolCallbackStreamsContinuation(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "ABC")
	model := &fixedModel{scores: []float64{0, 0, 10000}}
	var streamed []rune
	out, err := Generate("AB", model, codec, 4, mustSampler(t, 1, 0.5), WithSymbolFunc(func(r rune) {
		streamed = append(streamed, r)
	}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(streamed) != "CCCC" {
		t.Fatalf("streamed %q want CCCC", string(streamed))
	}
	if out != "AB"+string(streamed) {
		t.Fatalf("output %q does not equal seed + streamed", out)
	}
}

func TestStatePerCall(t *testing.T) {
	t.Parallel()

	codec := mustCodec(t, "ABCD")
	lstm, _ := recurrent.NewRandomLSTM(recurrent.Config{VocabSize: codec.Size(), EmbeddingDim: 3, HiddenSize: 5}, rand.New(rand.NewSource(8)))

	// Generating something else in between must not affect a later call.
	first, _, _ := Run(lstm, codec, Request{Seed: "A", Length: 30, Temperature: 1, RandSeed: 3})
	if _, _, err := Run(lstm, codec, Request{Seed: "DCBA", Length: 50, Temperature: 1.5, RandSeed: 4}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	again, _, _ := Run(lstm, codec, Request{Seed: "A", Length: 30, Temperature: 1, RandSeed: 3})
	if first != again {
		t.Fatalf("state leaked between calls: %q vs %q", first, again)
	}
}

func BenchmarkGenerateBigram(b *testing.B) {
	codec, _ := vocab.Build("abcdefghijklmnopqrstuvwxyzABCDEFG|:/ \n")
	model := toy.NewBigram(codec.Size(), 16, 1)
	b.ReportAllocs()
	for b.Loop() {
		sampler, _ := logits.NewSampler(logits.SamplerConfig{Seed: 1, Temperature: 0.8})
		if _, err := Generate("a", model, codec, 256, sampler); err != nil {
			b.Fatal(err)
		}
	}
}
