// Package vocab maps the characters of a training corpus to dense integer
// indices and back.
//
// The alphabet is sorted by code point so the index assignment depends only on
// the set of symbols, never on the order they appear in the corpus.
package vocab

import (
	"slices"
	"strings"
)

// Codec is an immutable bijection between an alphabet and [0, N).
// It is safe for concurrent use.
type Codec struct {
	symbols []rune
	index   map[rune]int
}

// Build derives the alphabet from every distinct rune in corpus.
func Build(corpus string) (*Codec, error) {
	if corpus == "" {
		return nil, ErrEmptyCorpus
	}
	seen := make(map[rune]struct{})
	for _, r := range corpus {
		seen[r] = struct{}{}
	}
	symbols := make([]rune, 0, len(seen))
	for r := range seen {
		symbols = append(symbols, r)
	}
	return newCodec(symbols), nil
}

// FromAlphabet rebuilds a codec from a stored alphabet. Duplicates are
// dropped and the symbols are re-sorted, so the result matches Build over any
// corpus with the same symbol set.
func FromAlphabet(alphabet string) (*Codec, error) {
	if alphabet == "" {
		return nil, ErrEmptyCorpus
	}
	symbols := []rune(alphabet)
	slices.Sort(symbols)
	symbols = slices.Compact(symbols)
	return newCodec(symbols), nil
}

func newCodec(symbols []rune) *Codec {
	slices.Sort(symbols)
	index := make(map[rune]int, len(symbols))
	for i, r := range symbols {
		index[r] = i
	}
	return &Codec{symbols: symbols, index: index}
}

// Size returns the number of symbols N.
func (c *Codec) Size() int {
	return len(c.symbols)
}

// Alphabet returns the symbols in index order.
func (c *Codec) Alphabet() string {
	return string(c.symbols)
}

// Index returns the index of r and whether r is in the alphabet.
func (c *Codec) Index(r rune) (int, bool) {
	i, ok := c.index[r]
	return i, ok
}

func (c *Codec) Symbol(i int) (rune, error) {
	if i < 0 || i >= len(c.symbols) {
		return 0, &IndexOutOfRangeError{Index: i, Size: len(c.symbols)}
	}
	return c.symbols[i], nil
}

// Encode maps text to indices. The first symbol missing from the alphabet
// aborts encoding with an *UnknownSymbolError.
func (c *Codec) Encode(text string) ([]int, error) {
	ids := make([]int, 0, len(text))
	pos := 0
	for _, r := range text {
		i, ok := c.index[r]
		if !ok {
			return nil, &UnknownSymbolError{Symbol: r, Offset: pos}
		}
		ids = append(ids, i)
		pos++
	}
	return ids, nil
}

// Decode maps indices back to text.
func (c *Codec) Decode(ids []int) (string, error) {
	var sb strings.Builder
	sb.Grow(len(ids))
	for _, id := range ids {
		r, err := c.Symbol(id)
		if err != nil {
			return "", err
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}
