package vocab

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCorpus     = errors.New("vocab: empty corpus")
	ErrUnknownSymbol   = errors.New("vocab: unknown symbol")
	ErrIndexOutOfRange = errors.New("vocab: index out of range")
)

// UnknownSymbolError reports a symbol that is not part of the alphabet.
// Offset is the rune position of the symbol in the encoded text.
type UnknownSymbolError struct {
	Symbol rune
	Offset int
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("vocab: unknown symbol %q at offset %d", e.Symbol, e.Offset)
}

func (e *UnknownSymbolError) Unwrap() error {
	return ErrUnknownSymbol
}

type IndexOutOfRangeError struct {
	Index int
	Size  int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("vocab: index %d out of range [0, %d)", e.Index, e.Size)
}

func (e *IndexOutOfRangeError) Unwrap() error {
	return ErrIndexOutOfRange
}
