package recurrent

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Config holds the dimensions of an LSTM language model.
type Config struct {
	VocabSize    int `json:"vocab_size"`
	EmbeddingDim int `json:"embedding_dim"`
	HiddenSize   int `json:"hidden_size"`
}

func (c Config) Validate() error {
	if c.VocabSize <= 0 || c.EmbeddingDim <= 0 || c.HiddenSize <= 0 {
		return fmt.Errorf("%w: vocab_size=%d embedding_dim=%d hidden_size=%d",
			ErrInvalidConfig, c.VocabSize, c.EmbeddingDim, c.HiddenSize)
	}
	return nil
}

// Weights holds row-major parameters using the gate layout (i, f, g, o) of
// the usual embedding -> LSTM -> linear character model.
//
//	Embedding [V, E]
//	WeightIH  [4H, E]
//	WeightHH  [4H, H]
//	BiasIH    [4H]
//	BiasHH    [4H]
//	FCWeight  [V, H]
//	FCBias    [V]
type Weights struct {
	Embedding []float64
	WeightIH  []float64
	WeightHH  []float64
	BiasIH    []float64
	BiasHH    []float64
	FCWeight  []float64
	FCBias    []float64
}

// LSTM is a single-layer LSTM character model. Weights are read-only after
// construction, so one LSTM may serve concurrent Step calls as long as each
// caller owns its State.
type LSTM struct {
	cfg Config

	emb  *mat.Dense // [V x E]
	wih  *mat.Dense // [4H x E]
	whh  *mat.Dense // [4H x H]
	bih  []float64
	bhh  []float64
	bias []float64 // bih + bhh
	fc   *mat.Dense // [V x H]
	fcb  []float64
}

// LSTMState is the (hidden, cell) pair, each [batch x H].
type LSTMState struct {
	H *mat.Dense
	C *mat.Dense
}

func (s *LSTMState) BatchSize() int {
	if s == nil || s.H == nil {
		return 0
	}
	r, _ := s.H.Dims()
	return r
}

// NewLSTM builds a model from explicit weights. The slices are copied.
func NewLSTM(cfg Config, w Weights) (*LSTM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v, e, h := cfg.VocabSize, cfg.EmbeddingDim, cfg.HiddenSize
	checks := []struct {
		name string
		got  int
		want int
	}{
		{"embedding", len(w.Embedding), v * e},
		{"weight_ih", len(w.WeightIH), 4 * h * e},
		{"weight_hh", len(w.WeightHH), 4 * h * h},
		{"bias_ih", len(w.BiasIH), 4 * h},
		{"bias_hh", len(w.BiasHH), 4 * h},
		{"fc.weight", len(w.FCWeight), v * h},
		{"fc.bias", len(w.FCBias), v},
	}
	for _, c := range checks {
		if c.got != c.want {
			return nil, fmt.Errorf("%w: %s has %d values, want %d", ErrInvalidConfig, c.name, c.got, c.want)
		}
	}

	m := &LSTM{
		cfg: cfg,
		emb: mat.NewDense(v, e, clone(w.Embedding)),
		wih: mat.NewDense(4*h, e, clone(w.WeightIH)),
		whh: mat.NewDense(4*h, h, clone(w.WeightHH)),
		bih: clone(w.BiasIH),
		bhh: clone(w.BiasHH),
		fc:  mat.NewDense(v, h, clone(w.FCWeight)),
		fcb: clone(w.FCBias),
	}
	m.bias = make([]float64, 4*h)
	for i := range m.bias {
		m.bias[i] = m.bih[i] + m.bhh[i]
	}
	return m, nil
}

// NewRandomLSTM initialises every parameter uniformly in [-1/sqrt(H), 1/sqrt(H)]
// and the embedding from N(0, 1). The result depends only on cfg and rng.
func NewRandomLSTM(cfg Config, rng *rand.Rand) (*LSTM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidConfig)
	}
	v, e, h := cfg.VocabSize, cfg.EmbeddingDim, cfg.HiddenSize
	k := 1 / math.Sqrt(float64(h))
	uniform := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = (rng.Float64()*2 - 1) * k
		}
		return out
	}
	emb := make([]float64, v*e)
	for i := range emb {
		emb[i] = rng.NormFloat64()
	}
	return NewLSTM(cfg, Weights{
		Embedding: emb,
		WeightIH:  uniform(4 * h * e),
		WeightHH:  uniform(4 * h * h),
		BiasIH:    uniform(4 * h),
		BiasHH:    uniform(4 * h),
		FCWeight:  uniform(v * h),
		FCBias:    uniform(v),
	})
}

func (m *LSTM) Config() Config {
	return m.cfg
}

func (m *LSTM) VocabSize() int {
	return m.cfg.VocabSize
}

// Weights returns a copy of the parameters.
func (m *LSTM) Weights() Weights {
	return Weights{
		Embedding: clone(m.emb.RawMatrix().Data),
		WeightIH:  clone(m.wih.RawMatrix().Data),
		WeightHH:  clone(m.whh.RawMatrix().Data),
		BiasIH:    clone(m.bih),
		BiasHH:    clone(m.bhh),
		FCWeight:  clone(m.fc.RawMatrix().Data),
		FCBias:    clone(m.fcb),
	}
}

func (m *LSTM) InitState(batchSize int) (State, error) {
	if batchSize < 1 {
		return nil, ErrInvalidBatch
	}
	return &LSTMState{
		H: mat.NewDense(batchSize, m.cfg.HiddenSize, nil),
		C: mat.NewDense(batchSize, m.cfg.HiddenSize, nil),
	}, nil
}

// Step runs the LSTM over every position of inputs. Scores are returned for
// each position; the returned state is a fresh copy.
func (m *LSTM) Step(inputs [][]int, state State) ([][][]float64, State, error) {
	st, ok := state.(*LSTMState)
	if !ok || st == nil || st.H == nil || st.C == nil {
		return nil, nil, fmt.Errorf("%w: got %T", ErrStateMismatch, state)
	}
	batch := len(inputs)
	hr, hc := st.H.Dims()
	cr, cc := st.C.Dims()
	if hr != batch || cr != batch || hc != m.cfg.HiddenSize || cc != m.cfg.HiddenSize {
		return nil, nil, fmt.Errorf("%w: state is %dx%d, inputs have batch %d", ErrStateMismatch, hr, hc, batch)
	}
	steps, err := CheckInputs(inputs, m.cfg.VocabSize)
	if err != nil {
		return nil, nil, err
	}

	hs := m.cfg.HiddenSize
	h := mat.DenseCopyOf(st.H)
	c := mat.DenseCopyOf(st.C)
	x := mat.NewDense(batch, m.cfg.EmbeddingDim, nil)

	var gates, rec, out mat.Dense
	scores := make([][][]float64, batch)
	for b := range scores {
		scores[b] = make([][]float64, steps)
	}

	for t := 0; t < steps; t++ {
		for b := range inputs {
			x.SetRow(b, m.emb.RawRowView(inputs[b][t]))
		}
		gates.Mul(x, m.wih.T())
		rec.Mul(h, m.whh.T())
		gates.Add(&gates, &rec)

		for b := 0; b < batch; b++ {
			g := gates.RawRowView(b)
			hRow := h.RawRowView(b)
			cRow := c.RawRowView(b)
			for j := 0; j < hs; j++ {
				in := sigmoid(g[j] + m.bias[j])
				forget := sigmoid(g[hs+j] + m.bias[hs+j])
				cand := math.Tanh(g[2*hs+j] + m.bias[2*hs+j])
				outg := sigmoid(g[3*hs+j] + m.bias[3*hs+j])
				cRow[j] = forget*cRow[j] + in*cand
				hRow[j] = outg * math.Tanh(cRow[j])
			}
		}

		out.Mul(h, m.fc.T())
		for b := 0; b < batch; b++ {
			row := clone(out.RawRowView(b))
			for j := range row {
				row[j] += m.fcb[j]
			}
			scores[b][t] = row
		}
	}

	return scores, &LSTMState{H: h, C: c}, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clone(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	return out
}
