// Package recurrent defines the stateful step contract the generation loop
// drives, and an LSTM that satisfies it.
package recurrent

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig = errors.New("recurrent: invalid config")
	ErrInvalidBatch  = errors.New("recurrent: batch size must be positive")
	ErrStateMismatch = errors.New("recurrent: state does not match model")
	ErrInvalidInput  = errors.New("recurrent: invalid input")
)

// State is the carried memory of a model for one batch. Its contents are
// owned by the model that created it.
type State interface {
	BatchSize() int
}

// StepModel is a stateful sequence model.
//
// Step consumes batch x positions indices and returns batch x positions x
// VocabSize unnormalised scores plus the state after the last position.
// Step must not modify the state it is given, and the same inputs must always
// produce the same outputs.
type StepModel interface {
	VocabSize() int
	InitState(batchSize int) (State, error)
	Step(inputs [][]int, state State) ([][][]float64, State, error)
}

// CheckInputs validates a batch of index sequences against a vocabulary and
// returns the sequence length. All rows must share one non-zero length.
func CheckInputs(inputs [][]int, vocabSize int) (int, error) {
	if len(inputs) == 0 {
		return 0, fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
	steps := len(inputs[0])
	if steps == 0 {
		return 0, fmt.Errorf("%w: empty sequence", ErrInvalidInput)
	}
	for b, row := range inputs {
		if len(row) != steps {
			return 0, fmt.Errorf("%w: row %d has %d positions, want %d", ErrInvalidInput, b, len(row), steps)
		}
		for _, id := range row {
			if id < 0 || id >= vocabSize {
				return 0, fmt.Errorf("%w: index %d outside [0, %d)", ErrInvalidInput, id, vocabSize)
			}
		}
	}
	return steps, nil
}
