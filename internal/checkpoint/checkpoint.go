// Package checkpoint loads and stores LSTM character models as safetensors
// files. Tensor names follow the PyTorch state dict of an
// Embedding -> LSTM -> Linear module, so exported training checkpoints load
// without conversion.
package checkpoint

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/samcharles93/tunesmith/internal/recurrent"
	"github.com/samcharles93/tunesmith/internal/safetensors"
	"github.com/samcharles93/tunesmith/internal/vocab"
)

const (
	TensorEmbedding = "embedding.weight"
	TensorWeightIH  = "lstm.weight_ih_l0"
	TensorWeightHH  = "lstm.weight_hh_l0"
	TensorBiasIH    = "lstm.bias_ih_l0"
	TensorBiasHH    = "lstm.bias_hh_l0"
	TensorFCWeight  = "fc.weight"
	TensorFCBias    = "fc.bias"

	MetaVocabSize    = "vocab_size"
	MetaEmbeddingDim = "embedding_dim"
	MetaHiddenSize   = "hidden_size"
	MetaAlphabet     = "alphabet"
)

var (
	ErrMissingMetadata = errors.New("checkpoint: missing metadata")
	ErrShapeMismatch   = errors.New("checkpoint: tensor shape mismatch")
	ErrVocabMismatch   = errors.New("checkpoint: vocabulary size mismatch")
)

// Checkpoint is a loaded model plus the alphabet it was trained on, when the
// file records one.
type Checkpoint struct {
	Config   recurrent.Config
	Alphabet string
	Model    *recurrent.LSTM
}

// Load reads a checkpoint and validates every tensor shape against the
// recorded dimensions. Weights are copied out of the mapping, so nothing is
// held open after Load returns.
func Load(path string) (*Checkpoint, error) {
	f, err := safetensors.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg, err := configFromMetadata(f.Metadata)
	if err != nil {
		return nil, err
	}
	v, e, h := cfg.VocabSize, cfg.EmbeddingDim, cfg.HiddenSize

	read := func(name string, shape ...int) ([]float64, error) {
		data, info, err := f.ReadTensorF64(name)
		if err != nil {
			return nil, err
		}
		if !sameShape(info.Shape, shape) {
			return nil, fmt.Errorf("%w: %s is %v, want %v", ErrShapeMismatch, name, info.Shape, shape)
		}
		return data, nil
	}

	var w recurrent.Weights
	tensors := []struct {
		name  string
		dst   *[]float64
		shape []int
	}{
		{TensorEmbedding, &w.Embedding, []int{v, e}},
		{TensorWeightIH, &w.WeightIH, []int{4 * h, e}},
		{TensorWeightHH, &w.WeightHH, []int{4 * h, h}},
		{TensorBiasIH, &w.BiasIH, []int{4 * h}},
		{TensorBiasHH, &w.BiasHH, []int{4 * h}},
		{TensorFCWeight, &w.FCWeight, []int{v, h}},
		{TensorFCBias, &w.FCBias, []int{v}},
	}
	for _, t := range tensors {
		data, err := read(t.name, t.shape...)
		if err != nil {
			return nil, err
		}
		*t.dst = data
	}

	model, err := recurrent.NewLSTM(cfg, w)
	if err != nil {
		return nil, err
	}

	alphabet := f.Metadata[MetaAlphabet]
	if alphabet != "" && len([]rune(alphabet)) != v {
		return nil, fmt.Errorf("%w: alphabet has %d symbols, vocab_size is %d", ErrVocabMismatch, len([]rune(alphabet)), v)
	}
	return &Checkpoint{Config: cfg, Alphabet: alphabet, Model: model}, nil
}

// Save writes m to path. A non-nil codec stores its alphabet so the file can
// be used without the training corpus.
func Save(path string, m *recurrent.LSTM, codec *vocab.Codec) error {
	cfg := m.Config()
	if codec != nil && codec.Size() != cfg.VocabSize {
		return fmt.Errorf("%w: codec has %d symbols, model has %d", ErrVocabMismatch, codec.Size(), cfg.VocabSize)
	}
	v, e, h := cfg.VocabSize, cfg.EmbeddingDim, cfg.HiddenSize
	w := m.Weights()

	meta := map[string]string{
		"format":         "pt",
		MetaVocabSize:    strconv.Itoa(v),
		MetaEmbeddingDim: strconv.Itoa(e),
		MetaHiddenSize:   strconv.Itoa(h),
	}
	if codec != nil {
		meta[MetaAlphabet] = codec.Alphabet()
	}

	return safetensors.Write(path, map[string]safetensors.Tensor{
		TensorEmbedding: {Shape: []int{v, e}, Data: w.Embedding},
		TensorWeightIH:  {Shape: []int{4 * h, e}, Data: w.WeightIH},
		TensorWeightHH:  {Shape: []int{4 * h, h}, Data: w.WeightHH},
		TensorBiasIH:    {Shape: []int{4 * h}, Data: w.BiasIH},
		TensorBiasHH:    {Shape: []int{4 * h}, Data: w.BiasHH},
		TensorFCWeight:  {Shape: []int{v, h}, Data: w.FCWeight},
		TensorFCBias:    {Shape: []int{v}, Data: w.FCBias},
	}, meta)
}

// Codec returns the vocabulary for this checkpoint. With a corpus the
// alphabet is rebuilt from it and must match the model's vocab_size;
// otherwise the stored alphabet is used.
func (c *Checkpoint) Codec(corpus string) (*vocab.Codec, error) {
	var (
		codec *vocab.Codec
		err   error
	)
	switch {
	case corpus != "":
		codec, err = vocab.Build(corpus)
	case c.Alphabet != "":
		codec, err = vocab.FromAlphabet(c.Alphabet)
	default:
		return nil, fmt.Errorf("%w: checkpoint has no alphabet and no corpus was given", ErrMissingMetadata)
	}
	if err != nil {
		return nil, err
	}
	if codec.Size() != c.Config.VocabSize {
		return nil, fmt.Errorf("%w: alphabet has %d symbols, vocab_size is %d", ErrVocabMismatch, codec.Size(), c.Config.VocabSize)
	}
	return codec, nil
}

func configFromMetadata(meta map[string]string) (recurrent.Config, error) {
	var cfg recurrent.Config
	fields := []struct {
		key string
		dst *int
	}{
		{MetaVocabSize, &cfg.VocabSize},
		{MetaEmbeddingDim, &cfg.EmbeddingDim},
		{MetaHiddenSize, &cfg.HiddenSize},
	}
	for _, f := range fields {
		raw, ok := meta[f.key]
		if !ok {
			return cfg, fmt.Errorf("%w: %s", ErrMissingMetadata, f.key)
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("checkpoint: %s: %w", f.key, err)
		}
		*f.dst = n
	}
	return cfg, cfg.Validate()
}

func sameShape(got, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
