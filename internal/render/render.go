// Package render turns ABC notation into audio.
package render

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"unicode"
)

const (
	DefaultSampleRate = 44100
	DefaultNoteLength = 0.25
	DefaultAmplitude  = 0.5
	FallbackFrequency = 440.0

	wavHeaderSize = 44
)

// NoteFrequencies maps the natural pitch letters to the fourth octave.
var NoteFrequencies = map[rune]float64{
	'C': 261.63,
	'D': 293.66,
	'E': 329.63,
	'F': 349.23,
	'G': 392.00,
	'A': 440.00,
	'B': 493.88,
}

var ErrInvalidOptions = errors.New("render: invalid options")

// Renderer converts notation text to a playable audio file.
type Renderer interface {
	Render(text string) ([]byte, error)
}

// Synth renders every pitch letter (either case) as a fixed-length sine
// tone. Other characters are skipped. Text without any pitch letter renders
// as one FallbackFrequency tone, so the output is never silent.
type Synth struct {
	SampleRate int
	NoteLength float64 // seconds
	Amplitude  float64 // (0, 1]
}

func NewSynth() *Synth {
	return &Synth{
		SampleRate: DefaultSampleRate,
		NoteLength: DefaultNoteLength,
		Amplitude:  DefaultAmplitude,
	}
}

// Notes returns the frequencies Render will play, in order.
func Notes(text string) []float64 {
	var out []float64
	for _, r := range text {
		if f, ok := NoteFrequencies[unicode.ToUpper(r)]; ok {
			out = append(out, f)
		}
	}
	return out
}

func (s *Synth) Render(text string) ([]byte, error) {
	if s.SampleRate <= 0 || !(s.NoteLength > 0) || !(s.Amplitude > 0) || s.Amplitude > 1 {
		return nil, ErrInvalidOptions
	}
	notes := Notes(text)
	if len(notes) == 0 {
		notes = []float64{FallbackFrequency}
	}

	perNote := int(float64(s.SampleRate) * s.NoteLength)
	pcm := make([]int16, 0, perNote*len(notes))
	for _, f := range notes {
		pcm = s.tone(pcm, f, perNote)
	}
	return encodeWAV(pcm, s.SampleRate)
}

func (s *Synth) tone(dst []int16, freq float64, n int) []int16 {
	step := 2 * math.Pi * freq / float64(s.SampleRate)
	for i := 0; i < n; i++ {
		v := s.Amplitude * math.Sin(step*float64(i))
		dst = append(dst, int16(v*math.MaxInt16))
	}
	return dst
}

type wavHeader struct {
	RIFF          [4]byte
	ChunkSize     uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

// encodeWAV wraps mono 16-bit PCM in a RIFF/WAVE container.
func encodeWAV(pcm []int16, sampleRate int) ([]byte, error) {
	dataSize := uint32(len(pcm) * 2)
	h := wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1, // PCM
		Channels:      1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + int(dataSize))
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, pcm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
