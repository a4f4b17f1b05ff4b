package toy

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/samcharles93/tunesmith/internal/recurrent"
)

// Bigram is a minimal next-symbol model used for testing and benchmarking the
// generation loop. It consists of an embedding matrix, a projection back to
// vocab scores and a bias vector. Scores depend only on the current symbol,
// so its state carries nothing but the batch size.
type Bigram struct {
	Vocab  int
	Hidden int

	Emb  *mat.Dense // [Vocab x Hidden]
	W    *mat.Dense // [Hidden x Vocab]
	Bias []float64  // [Vocab]
}

type bigramState struct {
	batch int
}

func (s bigramState) BatchSize() int { return s.batch }

// NewBigram constructs a model with deterministic random weights derived
// from seed. Biases are zeroed.
func NewBigram(vocab, hidden int, seed int64) *Bigram {
	m := &Bigram{
		Vocab:  vocab,
		Hidden: hidden,
		Emb:    mat.NewDense(vocab, hidden, nil),
		W:      mat.NewDense(hidden, vocab, nil),
		Bias:   make([]float64, vocab),
	}
	fillRand(m.Emb, seed+11)
	fillRand(m.W, seed+23)
	return m
}

func fillRand(d *mat.Dense, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	raw := d.RawMatrix().Data
	for i := range raw {
		raw[i] = rng.Float64()*2 - 1
	}
}

func (m *Bigram) VocabSize() int { return m.Vocab }

func (m *Bigram) InitState(batchSize int) (recurrent.State, error) {
	if batchSize < 1 {
		return nil, recurrent.ErrInvalidBatch
	}
	return bigramState{batch: batchSize}, nil
}

// Step returns Emb[tok] * W + Bias for every position.
func (m *Bigram) Step(inputs [][]int, state recurrent.State) ([][][]float64, recurrent.State, error) {
	st, ok := state.(bigramState)
	if !ok || st.batch != len(inputs) {
		return nil, nil, fmt.Errorf("%w: got %T", recurrent.ErrStateMismatch, state)
	}
	steps, err := recurrent.CheckInputs(inputs, m.Vocab)
	if err != nil {
		return nil, nil, err
	}
	out := make([][][]float64, len(inputs))
	for b, row := range inputs {
		out[b] = make([][]float64, steps)
		for t, tok := range row {
			out[b][t] = m.Forward(tok)
		}
	}
	return out, st, nil
}

// Forward computes the scores for a single symbol. A newly allocated slice is
// returned.
func (m *Bigram) Forward(tok int) []float64 {
	logits := mat.NewVecDense(m.Vocab, nil)
	logits.MulVec(m.W.T(), m.Emb.RowView(tok))
	out := logits.RawVector().Data
	for j := range out {
		out[j] += m.Bias[j]
	}
	return out
}
